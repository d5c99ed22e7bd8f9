package site

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Sites(ctx context.Context, assigned []string) ([]Site, error)
	Employees(ctx context.Context, assigned []string, filter EmployeeFilter) ([]Employee, error)
	Import(ctx context.Context, c Catalog) (ImportResult, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "site_service")),
	}
}

// Sites возвращает объекты, назначенные супервайзеру
func (s *Service) Sites(ctx context.Context, assigned []string) ([]Site, error) {
	if len(assigned) == 0 {
		return []Site{}, nil
	}

	sites, err := s.repo.ListSites(ctx, assigned)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	return sites, nil
}

// Employees возвращает сотрудников назначенных объектов.
// Запрос по чужому объекту отклоняется.
func (s *Service) Employees(ctx context.Context, assigned []string, filter EmployeeFilter) ([]Employee, error) {
	if filter.SiteID != "" && !contains(assigned, filter.SiteID) {
		s.log.Debug("employee request for foreign site", "site_id", filter.SiteID)
		return nil, ErrNotAssigned
	}

	var out []Employee
	if filter.SiteID != "" {
		list, err := s.repo.ListEmployees(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		return list, nil
	}

	for _, id := range assigned {
		f := filter
		f.SiteID = id
		list, err := s.repo.ListEmployees(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("list employees of %s: %w", id, err)
		}
		out = append(out, list...)
	}

	if out == nil {
		out = []Employee{}
	}

	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
