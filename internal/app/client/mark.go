package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/geofence"
)

type MarkOutcome int

const (
	MarkRecorded MarkOutcome = iota
	MarkAwaitingFix
	MarkRejected
	MarkAlreadyMarked
)

func (o MarkOutcome) String() string {
	switch o {
	case MarkRecorded:
		return "recorded"
	case MarkAwaitingFix:
		return "awaiting_fix"
	case MarkRejected:
		return "rejected"
	case MarkAlreadyMarked:
		return "already_marked"
	default:
		return "unknown"
	}
}

// MarkRequest отметка присутствия сотрудника
type MarkRequest struct {
	EmployeeID     string
	SiteID         string
	PhotoRef       string
	DeviceID       string
	SupervisorName string
}

type MarkResult struct {
	Outcome        MarkOutcome
	RecordID       int64
	Date           string
	DistanceMeters float64
}

type markLedger interface {
	AttendanceForEmployee(ctx context.Context, employeeID, date string) ([]attendance.Record, error)
	InsertAttendance(ctx context.Context, rec attendance.Record) (int64, error)
}

type markRemote interface {
	AttendanceForEmployee(ctx context.Context, employeeID string, month, year int) ([]attendance.RemoteRecord, error)
}

// Marker создает отметки присутствия, если геозона это разрешает
type Marker struct {
	ledger  markLedger
	remote  markRemote
	monitor *geofence.Monitor
	timeout time.Duration
	tz      *time.Location
	now     func() time.Time
	log     *slog.Logger

	onRecorded      func(siteID, date string)
	onAlreadyMarked func(siteID, date string)
}

func NewMarker(ledger markLedger, remote markRemote, monitor *geofence.Monitor, timeout time.Duration, tz *time.Location, log *slog.Logger) *Marker {
	if tz == nil {
		tz = time.Local
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Marker{
		ledger:  ledger,
		remote:  remote,
		monitor: monitor,
		timeout: timeout,
		tz:      tz,
		now:     time.Now,
		log:     log.With(slog.String("component", "marker")),
	}
}

// OnRecorded вызывается после сохранения новой отметки
func (m *Marker) OnRecorded(fn func(siteID, date string)) {
	m.onRecorded = fn
}

// OnAlreadyMarked вызывается, когда сервер уже знает отметку за сегодня
func (m *Marker) OnAlreadyMarked(fn func(siteID, date string)) {
	m.onAlreadyMarked = fn
}

// Today текущая дата по времени объекта
func (m *Marker) Today() string {
	return m.now().In(m.tz).Format(attendance.DateLayout)
}

// MarkPresent отмечает сотрудника. Пока нет точки, возвращает
// MarkAwaitingFix без ошибки. Вне геозоны возвращает ErrOutsideGeofence.
func (m *Marker) MarkPresent(ctx context.Context, req MarkRequest) (MarkResult, error) {
	if req.EmployeeID == "" || req.SiteID == "" {
		return MarkResult{Outcome: MarkRejected}, attendance.ErrInvalidRecord
	}

	sample, distance, _ := m.monitor.Last()
	switch m.monitor.Gate() {
	case geofence.GateAwaitingFix:
		return MarkResult{Outcome: MarkAwaitingFix}, nil
	case geofence.GateOutOfRange:
		return MarkResult{Outcome: MarkRejected, DistanceMeters: distance}, attendance.ErrOutsideGeofence
	}

	now := m.now().In(m.tz)
	date := now.Format(attendance.DateLayout)
	result := MarkResult{Date: date, DistanceMeters: distance}

	existing, err := m.ledger.AttendanceForEmployee(ctx, req.EmployeeID, date)
	if err != nil {
		result.Outcome = MarkRejected
		return result, fmt.Errorf("ошибка проверки локальных отметок: %w", err)
	}
	if len(existing) > 0 {
		result.Outcome = MarkAlreadyMarked
		result.RecordID = existing[0].ID
		return result, nil
	}

	if m.markedRemotely(ctx, req.EmployeeID, now) {
		m.log.Info("attendance already marked on server", "employee_id", req.EmployeeID, "date", date)
		if m.onAlreadyMarked != nil {
			m.onAlreadyMarked(req.SiteID, date)
		}
		result.Outcome = MarkAlreadyMarked
		return result, nil
	}

	id, err := m.ledger.InsertAttendance(ctx, attendance.Record{
		EmployeeID:     req.EmployeeID,
		SiteID:         req.SiteID,
		Date:           date,
		CheckInTime:    now,
		Status:         attendance.StatusPresent,
		Direction:      attendance.DirectionIn,
		Latitude:       sample.Latitude,
		Longitude:      sample.Longitude,
		PhotoRef:       req.PhotoRef,
		DeviceID:       req.DeviceID,
		SupervisorName: req.SupervisorName,
	})
	if err != nil {
		result.Outcome = MarkRejected
		return result, fmt.Errorf("ошибка сохранения отметки: %w", err)
	}

	m.log.Info("attendance marked", "employee_id", req.EmployeeID, "site_id", req.SiteID, "record_id", id)

	result.Outcome = MarkRecorded
	result.RecordID = id
	if m.onRecorded != nil {
		m.onRecorded(req.SiteID, date)
	}
	return result, nil
}

// markedRemotely проверяет отметку на сервере. Ошибка сети не мешает
// отметить сотрудника локально.
func (m *Marker) markedRemotely(ctx context.Context, employeeID string, now time.Time) bool {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	records, err := m.remote.AttendanceForEmployee(reqCtx, employeeID, int(now.Month()), now.Year())
	if err != nil {
		m.log.Debug("duplicate pre-check skipped", "employee_id", employeeID, "error", err)
		return false
	}

	date := now.Format(attendance.DateLayout)
	for _, r := range records {
		if normalizeDate(r.Date) == date {
			return true
		}
	}
	return false
}
