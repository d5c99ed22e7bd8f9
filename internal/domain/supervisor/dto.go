package supervisor

type LoginRequest struct {
	Username   string `json:"username" minLength:"1"`
	Password   string `json:"password" minLength:"1"`
	DeviceID   string `json:"deviceId,omitempty"`
	DeviceName string `json:"deviceName,omitempty"`
}

type LoginResponse struct {
	UserID        string   `json:"userId"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Role          string   `json:"role"`
	AssignedSites []string `json:"assignedSites"`
	Token         string   `json:"token"`
}

// ProvisionRequest данные для заведения супервайзера
type ProvisionRequest struct {
	Username      string
	Password      string
	Name          string
	Email         string
	AssignedSites []string
}
