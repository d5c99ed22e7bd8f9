package attendance

import "errors"

var (
	ErrDuplicate        = errors.New("attendance already marked for this date")
	ErrInvalidRecord    = errors.New("invalid attendance record")
	ErrOutsideGeofence  = errors.New("location outside site geofence")
	ErrAlreadyMarked    = errors.New("attendance already marked")
	ErrEmptyResponse    = errors.New("empty response from server")
	ErrSiteNotAssigned  = errors.New("site is not assigned")
	ErrNoActiveSite     = errors.New("no active site selected")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrRecordNotFound   = errors.New("attendance record not found")
)

// Коды ошибок сервера по отдельной записи
const (
	CodeDuplicate = "ATTENDANCE_DUPLICATE"
	CodeLocked    = "ATTENDANCE_LOCKED"
	CodeInvalid   = "ATTENDANCE_INVALID"
	CodeForbidden = "ATTENDANCE_FORBIDDEN"
)

// LockedMessage текст ошибки дубликата, который ожидают старые клиенты
const LockedMessage = "Attendance already marked for this date. Updates are locked."

type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindConnectivity        ErrorKind = "connectivity"
	KindServerRejection     ErrorKind = "server_rejection"
	KindDuplicateConflict   ErrorKind = "duplicate_conflict"
	KindLocalStorage        ErrorKind = "local_storage"
	KindGeofenceUnavailable ErrorKind = "geofence_unavailable"
)
