package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/session"
	"sitekeeper/internal/domain/supervisor"
)

type Auth struct {
	session     session.Servicer
	supervisors supervisor.Servicer
	log         *slog.Logger
}

func New(session session.Servicer, supervisors supervisor.Servicer, log *slog.Logger) *Auth {
	return &Auth{
		session:     session,
		supervisors: supervisors,
		log:         log.With(slog.String("component", "auth_middleware")),
	}
}

type contextKey string

const (
	supervisorKey contextKey = "supervisor"
	tokenKey      contextKey = "token"
)

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token, ok := BearerToken(ctx.Header("Authorization"))
		if !ok {
			a.log.Debug("missing bearer token", "path", ctx.URL().Path)
			unauthorized(ctx, a.log)
			return
		}

		sup, err := a.Authenticate(ctx.Context(), token)
		if err != nil {
			a.log.Debug("authenticate", "error", err)
			unauthorized(ctx, a.log)
			return
		}

		newCtx := WithSupervisor(ctx.Context(), sup)
		newCtx = WithToken(newCtx, token)
		next(huma.WithContext(ctx, newCtx))
	}
}

// Authenticate проверяет токен и загружает супервайзера
func (a *Auth) Authenticate(ctx context.Context, token string) (supervisor.Supervisor, error) {
	supervisorID, err := a.session.Validate(ctx, token)
	if err != nil {
		return supervisor.Supervisor{}, err
	}
	return a.supervisors.Find(ctx, supervisorID)
}

// Sites возвращает объекты супервайзера по токену, для websocket-канала
func (a *Auth) Sites(ctx context.Context, token string) ([]string, error) {
	sup, err := a.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return sup.AssignedSites, nil
}

func unauthorized(ctx huma.Context, log *slog.Logger) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")

	if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": "Unauthorized",
	}); err != nil {
		log.Error("json encode", "error", err)
	}
}

func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func WithSupervisor(ctx context.Context, sup supervisor.Supervisor) context.Context {
	return context.WithValue(ctx, supervisorKey, sup)
}

func GetSupervisor(ctx context.Context) (supervisor.Supervisor, bool) {
	sup, ok := ctx.Value(supervisorKey).(supervisor.Supervisor)
	return sup, ok
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// Principal права супервайзера для доменных сервисов
func Principal(ctx context.Context) (attendance.Principal, bool) {
	sup, ok := GetSupervisor(ctx)
	if !ok {
		return attendance.Principal{}, false
	}
	return attendance.Principal{
		SupervisorID:  sup.ID,
		AssignedSites: sup.AssignedSites,
	}, true
}
