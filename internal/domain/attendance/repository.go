package attendance

import "context"

type Repository interface {
	Insert(ctx context.Context, supervisorID string, item SyncItem) error
	FindByEmployeeDate(ctx context.Context, employeeID, date string) (RemoteRecord, error)
	List(ctx context.Context, filter Filter) ([]RemoteRecord, error)
	InsertLocation(ctx context.Context, req LocationRequest) error
}

// Publisher рассылает события подписчикам объекта
type Publisher interface {
	Publish(siteID, event string, payload any)
}

const EventAttendanceUpdate = "attendance_update"
