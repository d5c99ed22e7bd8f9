package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/exp/slog"
)

// Principal аутентифицированный супервайзер
type Principal struct {
	SupervisorID  string
	AssignedSites []string
}

func (p Principal) Assigned(siteID string) bool {
	for _, id := range p.AssignedSites {
		if id == siteID {
			return true
		}
	}
	return false
}

type Servicer interface {
	Sync(ctx context.Context, p Principal, items []SyncItem) (SyncResponse, error)
	List(ctx context.Context, p Principal, filter Filter) ([]RemoteRecord, error)
	LogLocation(ctx context.Context, p Principal, req LocationRequest) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	log       *slog.Logger
}

func NewService(repo Repository, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log.With(slog.String("component", "attendance_service")),
	}
}

// Sync принимает пакет записей. Каждая запись обрабатывается отдельно,
// ошибки по записям возвращаются в ответе, а не ошибкой метода.
func (s *Service) Sync(ctx context.Context, p Principal, items []SyncItem) (SyncResponse, error) {
	resp := SyncResponse{Success: true}
	touched := make(map[string]*UpdateEvent)

	for _, item := range items {
		if err := validateItem(item); err != nil {
			resp.Errors = append(resp.Errors, ItemError{
				EmployeeID: item.EmployeeID,
				Code:       CodeInvalid,
				Error:      err.Error(),
			})
			continue
		}

		if !p.Assigned(item.SiteID) {
			resp.Errors = append(resp.Errors, ItemError{
				EmployeeID: item.EmployeeID,
				Code:       CodeForbidden,
				Error:      ErrSiteNotAssigned.Error(),
			})
			continue
		}

		err := s.repo.Insert(ctx, p.SupervisorID, item)
		switch {
		case err == nil:
			resp.SyncedCount++
			ev, ok := touched[item.SiteID]
			if !ok {
				ev = &UpdateEvent{SiteID: item.SiteID}
				touched[item.SiteID] = ev
			}
			ev.Count++
			if !containsString(ev.Dates, item.Date) {
				ev.Dates = append(ev.Dates, item.Date)
			}
		case errors.Is(err, ErrDuplicate):
			resp.Errors = append(resp.Errors, s.duplicateError(ctx, item))
		default:
			s.log.Error("insert attendance", "employee_id", item.EmployeeID, "error", err)
			resp.Errors = append(resp.Errors, ItemError{
				EmployeeID: item.EmployeeID,
				Error:      "failed to store attendance",
			})
		}
	}

	if s.publisher != nil {
		for siteID, ev := range touched {
			sort.Strings(ev.Dates)
			s.publisher.Publish(siteID, EventAttendanceUpdate, *ev)
		}
	}

	s.log.Debug("sync batch processed",
		"supervisor_id", p.SupervisorID,
		"received", len(items),
		"synced", resp.SyncedCount,
		"errors", len(resp.Errors),
	)

	return resp, nil
}

func (s *Service) duplicateError(ctx context.Context, item SyncItem) ItemError {
	itemErr := ItemError{
		EmployeeID: item.EmployeeID,
		Code:       CodeLocked,
		Error:      LockedMessage,
	}

	existing, err := s.repo.FindByEmployeeDate(ctx, item.EmployeeID, item.Date)
	if err == nil && !existing.IsLocked {
		itemErr.Code = CodeDuplicate
	}

	return itemErr
}

// List возвращает записи за месяц по объекту или сотруднику
func (s *Service) List(ctx context.Context, p Principal, filter Filter) ([]RemoteRecord, error) {
	if filter.SiteID == "" && filter.EmployeeID == "" {
		return nil, fmt.Errorf("%w: site or employee is required", ErrInvalidRecord)
	}
	if filter.SiteID != "" && !p.Assigned(filter.SiteID) {
		return nil, ErrSiteNotAssigned
	}
	if filter.Month != 0 && (filter.Month < 1 || filter.Month > 12) {
		return nil, fmt.Errorf("%w: month out of range", ErrInvalidRecord)
	}
	if filter.Month != 0 && filter.Year == 0 {
		filter.Year = time.Now().Year()
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	return records, nil
}

// LogLocation сохраняет точку журнала перемещений
func (s *Service) LogLocation(ctx context.Context, p Principal, req LocationRequest) error {
	if req.SiteID == "" {
		return fmt.Errorf("%w: site is required", ErrInvalidRecord)
	}
	req.SupervisorID = p.SupervisorID
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	if err := s.repo.InsertLocation(ctx, req); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}

	return nil
}

func validateItem(item SyncItem) error {
	if item.EmployeeID == "" || item.SiteID == "" {
		return fmt.Errorf("%w: employee and site are required", ErrInvalidRecord)
	}
	if _, err := time.Parse(DateLayout, item.Date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidRecord, item.Date)
	}
	if item.Status != StatusPresent && item.Status != StatusAbsent {
		return fmt.Errorf("%w: bad status %q", ErrInvalidRecord, item.Status)
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// MonthRange границы месяца для выборки по дате
func MonthRange(year, month int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start.Format(DateLayout), end.Format(DateLayout)
}
