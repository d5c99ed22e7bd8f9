package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/attendance"
)

type mergeLedger interface {
	AttendanceByDate(ctx context.Context, date string) ([]attendance.Record, error)
}

type mergeRemote interface {
	AttendanceBySite(ctx context.Context, siteID string, month, year int) ([]attendance.RemoteRecord, error)
}

// Merger собирает сводку за день из серверных и локальных записей
type Merger struct {
	ledger  mergeLedger
	remote  mergeRemote
	timeout time.Duration
	log     *slog.Logger
}

func NewMerger(ledger mergeLedger, remote mergeRemote, timeout time.Duration, log *slog.Logger) *Merger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Merger{
		ledger:  ledger,
		remote:  remote,
		timeout: timeout,
		log:     log.With(slog.String("component", "merger")),
	}
}

// Refresh строит сводку по объекту за дату. Заблокированная серверная
// запись всегда главнее локальной. Если сервер недоступен, сводка
// строится только из локальных записей.
func (m *Merger) Refresh(ctx context.Context, siteID, date string) (attendance.View, error) {
	day, err := time.Parse(attendance.DateLayout, date)
	if err != nil {
		return attendance.View{}, fmt.Errorf("%w: bad date %q", attendance.ErrInvalidRecord, date)
	}

	local, err := m.ledger.AttendanceByDate(ctx, date)
	if err != nil {
		return attendance.View{}, fmt.Errorf("ошибка чтения локальных отметок: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	remote, err := m.remote.AttendanceBySite(reqCtx, siteID, int(day.Month()), day.Year())
	cancel()

	var view attendance.View
	if err != nil {
		m.log.Warn("remote attendance unavailable, using local records", "site_id", siteID, "error", err)
		view = attendance.NewView(siteID, date, attendance.SourceLocalOnly)
	} else {
		view = attendance.NewView(siteID, date, attendance.SourceRemote)
		for _, r := range remote {
			if normalizeDate(r.Date) != date {
				continue
			}
			view.Entries[r.EmployeeID] = attendance.Entry{
				Status:      r.Status,
				CheckInTime: r.CheckInTime,
				PhotoRef:    r.PhotoURL,
				IsSynced:    true,
				IsLocked:    r.IsLocked,
			}
		}
	}

	overlayLocal(view, local)

	return view, nil
}

func overlayLocal(view attendance.View, local []attendance.Record) {
	for _, rec := range local {
		if rec.SiteID != view.SiteID {
			continue
		}

		synced := rec.SyncState == attendance.SyncSynced
		// локальная запись перекрывает все, кроме заблокированных
		if existing, ok := view.Entries[rec.EmployeeID]; ok && existing.IsLocked {
			continue
		}

		view.Entries[rec.EmployeeID] = attendance.Entry{
			Status:      rec.Status,
			CheckInTime: rec.CheckInTime.Format(time.RFC3339),
			PhotoRef:    rec.PhotoRef,
			IsSynced:    synced,
			IsLocked:    synced,
		}
	}
}

func normalizeDate(s string) string {
	if len(s) > len(attendance.DateLayout) {
		return s[:len(attendance.DateLayout)]
	}
	return s
}
