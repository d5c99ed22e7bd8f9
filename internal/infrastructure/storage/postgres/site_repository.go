package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/site"
)

type SiteRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewSiteRepository(db *Storage, log *slog.Logger) *SiteRepository {
	return &SiteRepository{
		db:  db,
		log: log,
	}
}

func (r *SiteRepository) ListSites(ctx context.Context, ids []string) ([]site.Site, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT id, name, location, latitude, longitude, geofence_radius, updated_at
         FROM sites WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	sites := []site.Site{}
	for rows.Next() {
		var s site.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Location, &s.Latitude, &s.Longitude, &s.GeofenceRadius, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, s)
	}

	return sites, rows.Err()
}

func (r *SiteRepository) FindSite(ctx context.Context, id string) (site.Site, error) {
	var s site.Site
	err := r.db.Pool().QueryRow(ctx,
		`SELECT id, name, location, latitude, longitude, geofence_radius, updated_at
         FROM sites WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Location, &s.Latitude, &s.Longitude, &s.GeofenceRadius, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, site.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("find site: %w", err)
	}
	return s, nil
}

func (r *SiteRepository) ListEmployees(ctx context.Context, filter site.EmployeeFilter) ([]site.Employee, error) {
	query := `SELECT id, biometric_code, name, role, site_id, photo_url, status, updated_at
              FROM employees WHERE site_id = $1`
	if filter.Active {
		query += ` AND status = 'Active'`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Pool().Query(ctx, query, filter.SiteID)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	employees := []site.Employee{}
	for rows.Next() {
		var e site.Employee
		if err := rows.Scan(&e.ID, &e.BiometricCode, &e.Name, &e.Role, &e.SiteID, &e.PhotoURL, &e.Status, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	return employees, rows.Err()
}

func (r *SiteRepository) SaveSite(ctx context.Context, s site.Site) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO sites (id, name, location, latitude, longitude, geofence_radius, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, NOW())
         ON CONFLICT (id) DO UPDATE SET
             name = EXCLUDED.name,
             location = EXCLUDED.location,
             latitude = EXCLUDED.latitude,
             longitude = EXCLUDED.longitude,
             geofence_radius = EXCLUDED.geofence_radius,
             updated_at = NOW()`,
		s.ID, s.Name, s.Location, s.Latitude, s.Longitude, s.GeofenceRadius)
	if err != nil {
		return fmt.Errorf("upsert site: %w", err)
	}
	return nil
}

func (r *SiteRepository) SaveEmployee(ctx context.Context, e site.Employee) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO employees (id, biometric_code, name, role, site_id, photo_url, status, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
         ON CONFLICT (id) DO UPDATE SET
             biometric_code = EXCLUDED.biometric_code,
             name = EXCLUDED.name,
             role = EXCLUDED.role,
             site_id = EXCLUDED.site_id,
             photo_url = EXCLUDED.photo_url,
             status = EXCLUDED.status,
             updated_at = NOW()`,
		e.ID, e.BiometricCode, e.Name, e.Role, e.SiteID, e.PhotoURL, e.Status)
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}
