package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/attendance"
)

type AttendanceRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewAttendanceRepository(db *Storage, log *slog.Logger) *AttendanceRepository {
	return &AttendanceRepository{
		db:  db,
		log: log,
	}
}

// Insert сохраняет запись. Повтор по (employee_id, date) возвращает attendance.ErrDuplicate.
func (r *AttendanceRepository) Insert(ctx context.Context, supervisorID string, item attendance.SyncItem) error {
	var lat, lng *float64
	if item.Location != nil {
		lat, lng = &item.Location.Lat, &item.Location.Lng
	}

	direction := item.Type
	if direction == "" {
		direction = attendance.DirectionIn
	}

	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO attendance (employee_id, site_id, date, status, check_in_time, direction,
                                 photo_url, latitude, longitude, device_id, supervisor_id,
                                 supervisor_name, client_ref)
         VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.EmployeeID, item.SiteID, item.Date, string(item.Status), item.CheckInTime, string(direction),
		item.PhotoURL, lat, lng, item.DeviceID, supervisorID, item.SupervisorName, item.ID)
	if isUniqueViolation(err) {
		return attendance.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) FindByEmployeeDate(ctx context.Context, employeeID, date string) (attendance.RemoteRecord, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT id::text, employee_id, site_id, to_char(date, 'YYYY-MM-DD'), status, check_in_time, photo_url, is_locked
         FROM attendance WHERE employee_id = $1 AND date = $2::date`, employeeID, date)

	rec, err := scanRemote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, attendance.ErrRecordNotFound
	}
	return rec, err
}

func (r *AttendanceRepository) List(ctx context.Context, filter attendance.Filter) ([]attendance.RemoteRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.SiteID != "" {
		add("site_id = $%d", filter.SiteID)
	}
	if filter.EmployeeID != "" {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if filter.Month != 0 {
		from, to := attendance.MonthRange(filter.Year, filter.Month)
		add("date >= $%d::date", from)
		add("date <= $%d::date", to)
	}
	if !filter.UpdatedAfter.IsZero() {
		add("updated_at > $%d", filter.UpdatedAfter)
	}

	query := `SELECT id::text, employee_id, site_id, to_char(date, 'YYYY-MM-DD'), status, check_in_time, photo_url, is_locked
              FROM attendance`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, employee_id"

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	records := []attendance.RemoteRecord{}
	for rows.Next() {
		rec, err := scanRemote(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *AttendanceRepository) InsertLocation(ctx context.Context, req attendance.LocationRequest) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO location_logs (supervisor_id, supervisor_name, site_id, latitude, longitude, status, recorded_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.SupervisorID, req.SupervisorName, req.SiteID, req.Latitude, req.Longitude, req.Status, req.Timestamp)
	return err
}

func scanRemote(row pgx.Row) (attendance.RemoteRecord, error) {
	var (
		rec     attendance.RemoteRecord
		status  string
		checkIn time.Time
	)
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.SiteID, &rec.Date, &status, &checkIn, &rec.PhotoURL, &rec.IsLocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan attendance: %w", err)
	}
	rec.Status = attendance.Status(status)
	rec.CheckInTime = checkIn.UTC().Format(time.RFC3339)
	return rec, nil
}
