package supervisor

import "errors"

var (
	ErrNotFound     = errors.New("supervisor not found")
	ErrInvalidAuth  = errors.New("invalid credentials")
	ErrInvalidInput = errors.New("invalid input")
	ErrExists       = errors.New("supervisor already exists")
)
