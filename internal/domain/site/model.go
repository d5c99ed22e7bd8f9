package site

import "time"

// Site объект, на котором работает супервайзер
type Site struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Location       string    `json:"location" yaml:"location"`
	Latitude       float64   `json:"latitude" yaml:"latitude"`
	Longitude      float64   `json:"longitude" yaml:"longitude"`
	GeofenceRadius float64   `json:"geofenceRadius" yaml:"geofenceRadius"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty" yaml:"updatedAt"`
}

type Employee struct {
	ID            string    `json:"id" yaml:"id"`
	BiometricCode string    `json:"biometricCode" yaml:"biometricCode"`
	Name          string    `json:"name" yaml:"name"`
	Role          string    `json:"role" yaml:"role"`
	SiteID        string    `json:"siteId" yaml:"siteId"`
	PhotoURL      string    `json:"photoUrl" yaml:"photoUrl"`
	Status        string    `json:"status" yaml:"status"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty" yaml:"updatedAt"`
}

const (
	EmployeeActive   = "Active"
	EmployeeInactive = "Inactive"
)

// Active сотрудник участвует в ежедневной отметке
func (e Employee) Active() bool {
	return e.Status == "" || e.Status == EmployeeActive
}

// EmployeeFilter фильтр выборки сотрудников
type EmployeeFilter struct {
	SiteID string
	Active bool
}
