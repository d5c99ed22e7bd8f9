package supervisor

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/app/server/api/http/middleware/auth"
	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/session"
	"sitekeeper/internal/domain/supervisor"
)

type Handler struct {
	service    supervisor.Servicer
	session    session.Servicer
	attendance attendance.Servicer
	log        *slog.Logger
	public     huma.Middlewares
	private    huma.Middlewares
}

func NewHandler(
	service supervisor.Servicer,
	session session.Servicer,
	attendance attendance.Servicer,
	log *slog.Logger,
	public, private huma.Middlewares,
) *Handler {
	return &Handler{
		service:    service,
		session:    session,
		attendance: attendance,
		log:        log,
		public:     public,
		private:    private,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.logoutOp(), h.logout)
	huma.Register(api, h.locationOp(), h.location)
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	resp, err := h.service.Login(ctx, input.Body)
	if err != nil {
		if errors.Is(err, supervisor.ErrInvalidAuth) {
			return nil, huma.Error401Unauthorized("Invalid credentials")
		}
		h.log.Error("login", "error", err)
		return nil, huma.Error500InternalServerError("login failed")
	}

	return &loginOutput{Body: resp}, nil
}

func (h *Handler) logout(ctx context.Context, _ *logoutInput) (*statusOutput, error) {
	if err := h.session.Revoke(ctx, auth.GetToken(ctx)); err != nil {
		h.log.Error("logout", "error", err)
		return nil, huma.Error500InternalServerError("logout failed")
	}
	return &statusOutput{Body: StatusResponse{Success: true}}, nil
}

func (h *Handler) location(ctx context.Context, input *locationInput) (*statusOutput, error) {
	p, ok := auth.Principal(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.attendance.LogLocation(ctx, p, input.Body); err != nil {
		if errors.Is(err, attendance.ErrInvalidRecord) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		h.log.Error("log location", "error", err)
		return nil, huma.Error500InternalServerError("failed to store location")
	}

	return &statusOutput{Body: StatusResponse{Success: true}}, nil
}
