package supervisor

import "time"

type Supervisor struct {
	ID            string
	Username      string
	Name          string
	Email         string
	Role          string
	PasswordHash  string
	AssignedSites []string
	DeviceID      string
	DeviceName    string
	CreatedAt     time.Time
}

const RoleSupervisor = "supervisor"
