package site

import "fmt"

// Validate проверяет геозону объекта
func (s Site) Validate() error {
	if s.ID == "" {
		return ErrEmptyReference
	}
	if s.GeofenceRadius <= 0 {
		return fmt.Errorf("%s: %w", s.ID, ErrInvalidRadius)
	}
	if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("%s: %w", s.ID, ErrInvalidCoords)
	}
	return nil
}
