package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/app/server/api/http/middleware/auth"
	"sitekeeper/internal/domain/attendance"
)

type Handler struct {
	service    attendance.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service attendance.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.syncOp(), h.sync)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	p, ok := auth.Principal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	filter := attendance.Filter{
		SiteID:     input.SiteID,
		EmployeeID: input.EmployeeID,
		Month:      input.Month,
		Year:       input.Year,
	}
	if input.UpdatedAfter != "" {
		ts, err := time.Parse(time.RFC3339, input.UpdatedAfter)
		if err != nil {
			return nil, huma.Error400BadRequest("updatedAfter must be RFC3339")
		}
		filter.UpdatedAfter = ts
	}

	records, err := h.service.List(ctx, p, filter)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidRecord):
			return nil, huma.Error400BadRequest(err.Error())
		case errors.Is(err, attendance.ErrSiteNotAssigned):
			return nil, huma.Error403Forbidden(err.Error())
		}
		h.log.Error("list attendance", "supervisor_id", p.SupervisorID, "error", err)
		return nil, huma.Error500InternalServerError("failed to load attendance")
	}

	if records == nil {
		records = []attendance.RemoteRecord{}
	}

	return &listOutput{Body: records}, nil
}

// sync отвечает 200 даже при ошибках по отдельным записям,
// они перечислены в теле ответа.
func (h *Handler) sync(ctx context.Context, input *syncInput) (*syncOutput, error) {
	p, ok := auth.Principal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	resp, err := h.service.Sync(ctx, p, input.Body)
	if err != nil {
		h.log.Error("sync attendance", "supervisor_id", p.SupervisorID, "error", err)
		return nil, huma.Error500InternalServerError("failed to sync attendance")
	}

	return &syncOutput{Body: resp}, nil
}
