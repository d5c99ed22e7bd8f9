package site

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/app/server/api/http/middleware/auth"
	"sitekeeper/internal/domain/site"
)

type Handler struct {
	service    site.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service site.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.sitesOp(), h.sites)
	huma.Register(api, h.employeesOp(), h.employees)
}

func (h *Handler) sites(ctx context.Context, _ *sitesInput) (*sitesOutput, error) {
	sup, ok := auth.GetSupervisor(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	list, err := h.service.Sites(ctx, sup.AssignedSites)
	if err != nil {
		h.log.Error("list sites", "supervisor_id", sup.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to load sites")
	}

	return &sitesOutput{Body: list}, nil
}

func (h *Handler) employees(ctx context.Context, input *employeesInput) (*employeesOutput, error) {
	sup, ok := auth.GetSupervisor(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	list, err := h.service.Employees(ctx, sup.AssignedSites, site.EmployeeFilter{
		SiteID: input.SiteID,
		Active: input.Active,
	})
	if err != nil {
		if errors.Is(err, site.ErrNotAssigned) {
			return nil, huma.Error403Forbidden("Site is not assigned to supervisor")
		}
		h.log.Error("list employees", "supervisor_id", sup.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to load employees")
	}

	return &employeesOutput{Body: list}, nil
}
