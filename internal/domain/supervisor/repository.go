package supervisor

import "context"

type Repository interface {
	Create(ctx context.Context, s Supervisor) error
	FindByUsername(ctx context.Context, username string) (Supervisor, error)
	FindByID(ctx context.Context, id string) (Supervisor, error)
	UpdateDevice(ctx context.Context, id, deviceID, deviceName string) error
}
