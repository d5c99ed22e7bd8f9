package supervisor

import (
	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/supervisor"
)

type loginInput struct {
	Body supervisor.LoginRequest
}

type loginOutput struct {
	Body supervisor.LoginResponse
}

type logoutInput struct{}

type statusOutput struct {
	Body StatusResponse
}

type StatusResponse struct {
	Success bool `json:"success"`
}

type locationInput struct {
	Body attendance.LocationRequest
}
