package site

import "context"

type Repository interface {
	ListSites(ctx context.Context, ids []string) ([]Site, error)
	FindSite(ctx context.Context, id string) (Site, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	SaveSite(ctx context.Context, s Site) error
	SaveEmployee(ctx context.Context, e Employee) error
}
