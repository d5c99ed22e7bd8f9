package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/site"
	"sitekeeper/internal/infrastructure/migration"
)

const timeLayout = time.RFC3339Nano

// Ledger локальное хранилище отметок и журнала перемещений.
// Запись сериализуется мьютексом, чтение идет по снимку WAL.
type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

func NewLedger(path string) (*Ledger, error) {
	if err := migration.SQLite(path).Up(); err != nil {
		return nil, fmt.Errorf("ошибка миграции локальной базы: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// InsertAttendance сохраняет отметку в состоянии Pending
func (l *Ledger) InsertAttendance(ctx context.Context, rec attendance.Record) (int64, error) {
	if rec.EmployeeID == "" || rec.SiteID == "" || rec.Date == "" {
		return 0, attendance.ErrInvalidRecord
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = attendance.StatusPresent
	}
	if rec.Direction == "" {
		rec.Direction = attendance.DirectionIn
	}

	var id int64
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (employee_id, site_id, date, check_in_time, status, direction,
			                        latitude, longitude, photo_ref, device_id, supervisor_name,
			                        sync_state, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.EmployeeID, rec.SiteID, rec.Date, rec.CheckInTime.Format(timeLayout),
			string(rec.Status), string(rec.Direction), rec.Latitude, rec.Longitude,
			nullString(rec.PhotoRef), rec.DeviceID, rec.SupervisorName,
			int(attendance.SyncPending), rec.CreatedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("ошибка сохранения отметки: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})

	return id, err
}

// AppendLocationLog добавляет точку в журнал перемещений
func (l *Ledger) AppendLocationLog(ctx context.Context, entry attendance.LocationLog) (int64, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var id int64
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO location_logs (supervisor_id, supervisor_name, site_id, latitude, longitude, status, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.SupervisorID, entry.SupervisorName, entry.SiteID,
			entry.Latitude, entry.Longitude, entry.Status, entry.Timestamp.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("ошибка сохранения журнала: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})

	return id, err
}

const attendanceColumns = `id, employee_id, site_id, date, check_in_time, status, direction,
	latitude, longitude, photo_ref, device_id, supervisor_name, sync_state, created_at`

// UnsyncedAttendance отметки в состоянии Pending в порядке создания
func (l *Ledger) UnsyncedAttendance(ctx context.Context) ([]attendance.Record, error) {
	return l.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE sync_state = ? ORDER BY id`,
		int(attendance.SyncPending))
}

func (l *Ledger) AttendanceByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	return l.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE date = ? ORDER BY id`, date)
}

func (l *Ledger) AttendanceForEmployee(ctx context.Context, employeeID, date string) ([]attendance.Record, error) {
	return l.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE employee_id = ? AND date = ? ORDER BY id`,
		employeeID, date)
}

func (l *Ledger) queryAttendance(ctx context.Context, query string, args ...any) ([]attendance.Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var (
			rec                attendance.Record
			checkIn, createdAt string
			status, direction  string
			photoRef           sql.NullString
			state              int
		)
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.SiteID, &rec.Date, &checkIn,
			&status, &direction, &rec.Latitude, &rec.Longitude, &photoRef,
			&rec.DeviceID, &rec.SupervisorName, &state, &createdAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования отметки: %w", err)
		}

		rec.Status = attendance.Status(status)
		rec.Direction = attendance.Direction(direction)
		rec.PhotoRef = photoRef.String
		rec.SyncState = attendance.SyncState(state)
		rec.CheckInTime, _ = time.Parse(timeLayout, checkIn)
		rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)

		records = append(records, rec)
	}

	return records, rows.Err()
}

// MarkAttendanceSynced переводит отметку в Synced. Повторный вызов ничего не меняет.
func (l *Ledger) MarkAttendanceSynced(ctx context.Context, id int64) error {
	return l.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE attendance SET sync_state = ? WHERE id = ? AND sync_state = ?`,
			int(attendance.SyncSynced), id, int(attendance.SyncPending)); err != nil {
			return fmt.Errorf("ошибка обновления отметки: %w", err)
		}
		return nil
	})
}

func (l *Ledger) LocationLogs(ctx context.Context) ([]attendance.LocationLog, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, supervisor_id, supervisor_name, site_id, latitude, longitude, status, timestamp
		FROM location_logs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var logs []attendance.LocationLog
	for rows.Next() {
		var (
			entry attendance.LocationLog
			ts    string
		)
		if err := rows.Scan(&entry.ID, &entry.SupervisorID, &entry.SupervisorName, &entry.SiteID,
			&entry.Latitude, &entry.Longitude, &entry.Status, &ts); err != nil {
			return nil, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		entry.Timestamp, _ = time.Parse(timeLayout, ts)
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

// DeleteLocationLog удаляет отправленную точку журнала
func (l *Ledger) DeleteLocationLog(ctx context.Context, id int64) error {
	return l.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM location_logs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("ошибка удаления журнала: %w", err)
		}
		return nil
	})
}

func (l *Ledger) UpsertSites(ctx context.Context, sites []site.Site) error {
	now := time.Now().Format(timeLayout)
	return l.withTx(ctx, func(tx *sql.Tx) error {
		for _, s := range sites {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sites (id, name, location, latitude, longitude, geofence_radius, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					location = excluded.location,
					latitude = excluded.latitude,
					longitude = excluded.longitude,
					geofence_radius = excluded.geofence_radius,
					updated_at = excluded.updated_at`,
				s.ID, s.Name, s.Location, s.Latitude, s.Longitude, s.GeofenceRadius, now); err != nil {
				return fmt.Errorf("ошибка сохранения объекта %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

func (l *Ledger) UpsertEmployees(ctx context.Context, employees []site.Employee) error {
	now := time.Now().Format(timeLayout)
	return l.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range employees {
			status := e.Status
			if status == "" {
				status = site.EmployeeActive
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO employees (id, biometric_code, name, role, site_id, photo_url, status, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					biometric_code = excluded.biometric_code,
					name = excluded.name,
					role = excluded.role,
					site_id = excluded.site_id,
					photo_url = excluded.photo_url,
					status = excluded.status,
					updated_at = excluded.updated_at`,
				e.ID, e.BiometricCode, e.Name, e.Role, e.SiteID, e.PhotoURL, status, now); err != nil {
				return fmt.Errorf("ошибка сохранения сотрудника %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (l *Ledger) SiteByID(ctx context.Context, id string) (site.Site, error) {
	var (
		s         site.Site
		updatedAt string
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, location, latitude, longitude, geofence_radius, updated_at
		FROM sites WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Location, &s.Latitude, &s.Longitude, &s.GeofenceRadius, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, site.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("ошибка получения объекта: %w", err)
	}
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return s, nil
}

func (l *Ledger) Sites(ctx context.Context) ([]site.Site, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, location, latitude, longitude, geofence_radius, updated_at
		FROM sites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var sites []site.Site
	for rows.Next() {
		var (
			s         site.Site
			updatedAt string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Location, &s.Latitude, &s.Longitude, &s.GeofenceRadius, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования объекта: %w", err)
		}
		s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		sites = append(sites, s)
	}

	return sites, rows.Err()
}

// EmployeesBySite активные сотрудники объекта
func (l *Ledger) EmployeesBySite(ctx context.Context, siteID string) ([]site.Employee, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, biometric_code, name, role, site_id, photo_url, status, updated_at
		FROM employees WHERE site_id = ? AND status = ? ORDER BY name`, siteID, site.EmployeeActive)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var employees []site.Employee
	for rows.Next() {
		var (
			e         site.Employee
			updatedAt string
		)
		if err := rows.Scan(&e.ID, &e.BiometricCode, &e.Name, &e.Role, &e.SiteID, &e.PhotoURL, &e.Status, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сотрудника: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		employees = append(employees, e)
	}

	return employees, rows.Err()
}

func (l *Ledger) CountUnsynced(ctx context.Context) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE sync_state = ?`, int(attendance.SyncPending)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}
	return count, nil
}

// Reset очищает все локальные данные
func (l *Ledger) Reset(ctx context.Context) error {
	return l.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"attendance", "location_logs", "employees", "sites"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("ошибка очистки %s: %w", table, err)
			}
		}
		return nil
	})
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
