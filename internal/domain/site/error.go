package site

import "errors"

var (
	ErrNotFound       = errors.New("site not found")
	ErrInvalidRadius  = errors.New("geofence radius must be positive")
	ErrInvalidCoords  = errors.New("invalid site coordinates")
	ErrNotAssigned    = errors.New("site is not assigned to supervisor")
	ErrEmptyReference = errors.New("empty site reference")
)
