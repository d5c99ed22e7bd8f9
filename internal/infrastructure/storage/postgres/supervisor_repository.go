package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/supervisor"
)

type SupervisorRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewSupervisorRepository(db *Storage, log *slog.Logger) *SupervisorRepository {
	return &SupervisorRepository{
		db:  db,
		log: log,
	}
}

const supervisorColumns = `id, username, name, email, role, password_hash, assigned_sites, device_id, device_name, created_at`

func (r *SupervisorRepository) Create(ctx context.Context, s supervisor.Supervisor) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO supervisors (id, username, name, email, role, password_hash, assigned_sites)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Username, s.Name, s.Email, s.Role, s.PasswordHash, s.AssignedSites)
	if isUniqueViolation(err) {
		return supervisor.ErrExists
	}
	return err
}

func (r *SupervisorRepository) FindByUsername(ctx context.Context, username string) (supervisor.Supervisor, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+supervisorColumns+` FROM supervisors WHERE lower(username) = lower($1)`, username)
	return scanSupervisor(row)
}

func (r *SupervisorRepository) FindByID(ctx context.Context, id string) (supervisor.Supervisor, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+supervisorColumns+` FROM supervisors WHERE id = $1`, id)
	return scanSupervisor(row)
}

func (r *SupervisorRepository) UpdateDevice(ctx context.Context, id, deviceID, deviceName string) error {
	_, err := r.db.Pool().Exec(ctx,
		`UPDATE supervisors SET device_id = $2, device_name = $3 WHERE id = $1`,
		id, deviceID, deviceName)
	return err
}

func scanSupervisor(row pgx.Row) (supervisor.Supervisor, error) {
	var s supervisor.Supervisor
	err := row.Scan(&s.ID, &s.Username, &s.Name, &s.Email, &s.Role, &s.PasswordHash,
		&s.AssignedSites, &s.DeviceID, &s.DeviceName, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, supervisor.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("scan supervisor: %w", err)
	}
	return s, nil
}
