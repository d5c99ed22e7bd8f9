package attendance

import "time"

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SyncItem запись в теле POST /attendance/sync
type SyncItem struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employeeId" minLength:"1"`
	SiteID         string    `json:"siteId" minLength:"1"`
	Date           string    `json:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$"`
	Status         Status    `json:"status" enum:"P,A"`
	CheckInTime    time.Time `json:"checkInTime"`
	Type           Direction `json:"type,omitempty"`
	DeviceID       string    `json:"deviceId,omitempty"`
	PhotoURL       string    `json:"photoUrl,omitempty"`
	SupervisorName string    `json:"supervisorName,omitempty"`
	Location       *Location `json:"location,omitempty"`
}

// ItemError ошибка по одной записи пакета
type ItemError struct {
	EmployeeID string `json:"employeeId"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error"`
}

type SyncResponse struct {
	Success     bool        `json:"success"`
	SyncedCount int         `json:"syncedCount"`
	Errors      []ItemError `json:"errors,omitempty"`
}

// LocationRequest тело POST /supervisor/location
type LocationRequest struct {
	SupervisorID   string    `json:"supervisorId,omitempty"`
	SupervisorName string    `json:"supervisorName,omitempty"`
	SiteID         string    `json:"siteId"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

type LocationResponse struct {
	Success bool `json:"success"`
}

// Filter параметры выборки GET /attendance
type Filter struct {
	SiteID       string
	EmployeeID   string
	Month        int
	Year         int
	UpdatedAfter time.Time
}

// UpdateEvent событие attendance_update
type UpdateEvent struct {
	SiteID string   `json:"siteId"`
	Dates  []string `json:"dates"`
	Count  int      `json:"count"`
}

// FromRecord собирает запись для отправки на сервер
func FromRecord(rec Record, id, photoURL string) SyncItem {
	return SyncItem{
		ID:             id,
		EmployeeID:     rec.EmployeeID,
		SiteID:         rec.SiteID,
		Date:           rec.Date,
		Status:         rec.Status,
		CheckInTime:    rec.CheckInTime,
		Type:           rec.Direction,
		DeviceID:       rec.DeviceID,
		PhotoURL:       photoURL,
		SupervisorName: rec.SupervisorName,
		Location:       &Location{Lat: rec.Latitude, Lng: rec.Longitude},
	}
}

// ToLocationRequest собирает запись журнала для отправки на сервер
func (l LocationLog) ToLocationRequest() LocationRequest {
	return LocationRequest{
		SupervisorID:   l.SupervisorID,
		SupervisorName: l.SupervisorName,
		SiteID:         l.SiteID,
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
		Status:         l.Status,
		Timestamp:      l.Timestamp,
	}
}
