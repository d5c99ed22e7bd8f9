package attendance

import (
	"encoding/json"
	"time"
)

const DateLayout = "2006-01-02"

type Status string

const (
	StatusPresent Status = "P"
	StatusAbsent  Status = "A"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// SyncState состояние локальной записи. Переход только Pending -> Synced.
type SyncState int

const (
	SyncPending SyncState = 0
	SyncSynced  SyncState = 1
)

func (s SyncState) String() string {
	if s == SyncSynced {
		return "synced"
	}
	return "pending"
}

// Record локальная запись о присутствии
type Record struct {
	ID             int64
	EmployeeID     string
	SiteID         string
	Date           string
	CheckInTime    time.Time
	Status         Status
	Direction      Direction
	Latitude       float64
	Longitude      float64
	PhotoRef       string
	DeviceID       string
	SupervisorName string
	SyncState      SyncState
	CreatedAt      time.Time
}

// LocationLog запись журнала перемещений супервайзера
type LocationLog struct {
	ID             int64
	SupervisorID   string
	SupervisorName string
	SiteID         string
	Latitude       float64
	Longitude      float64
	Status         string
	Timestamp      time.Time
}

// RemoteRecord запись, подтвержденная сервером
type RemoteRecord struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employeeId"`
	SiteID      string `json:"siteId"`
	Date        string `json:"date"`
	Status      Status `json:"status"`
	CheckInTime string `json:"checkInTime"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	IsLocked    bool   `json:"isLocked"`
}

// UnmarshalJSON: отсутствующий isLocked означает заблокированную запись
func (r *RemoteRecord) UnmarshalJSON(data []byte) error {
	type alias RemoteRecord
	aux := struct {
		*alias
		IsLocked *bool `json:"isLocked"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.IsLocked = true
	if aux.IsLocked != nil {
		r.IsLocked = *aux.IsLocked
	}

	return nil
}

type Source string

const (
	SourceRemote    Source = "remote"
	SourceLocalOnly Source = "local"
)

// Entry строка сводки за день
type Entry struct {
	Status      Status `json:"status"`
	CheckInTime string `json:"checkInTime"`
	PhotoRef    string `json:"photoRef,omitempty"`
	IsSynced    bool   `json:"isSynced"`
	IsLocked    bool   `json:"isLocked"`
}

// View сводка присутствия по объекту за день
type View struct {
	SiteID  string           `json:"siteId"`
	Date    string           `json:"date"`
	Source  Source           `json:"source"`
	Entries map[string]Entry `json:"entries"`
}

func NewView(siteID, date string, source Source) View {
	return View{
		SiteID:  siteID,
		Date:    date,
		Source:  source,
		Entries: make(map[string]Entry),
	}
}
