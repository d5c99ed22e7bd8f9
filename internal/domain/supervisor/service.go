package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/session"
)

type Servicer interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Find(ctx context.Context, id string) (Supervisor, error)
	Provision(ctx context.Context, req ProvisionRequest) (string, error)
}

type Service struct {
	repo      Repository
	sessions  session.Servicer
	validator Validator
	log       *slog.Logger
}

func NewService(repo Repository, sessions session.Servicer, validator Validator, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		sessions:  sessions,
		validator: validator,
		log:       log.With(slog.String("component", "supervisor_service")),
	}
}

// Login проверяет пароль, запоминает последнее устройство и выдает токен.
// Вход с нового устройства не блокируется.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	username := normalizeUsername(req.Username)
	if err := s.validator.ValidateUsername(username); err != nil {
		return LoginResponse{}, ErrInvalidAuth
	}

	sup, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResponse{}, ErrInvalidAuth
		}
		return LoginResponse{}, fmt.Errorf("find supervisor: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(sup.PasswordHash), []byte(strings.TrimSpace(req.Password))); err != nil {
		return LoginResponse{}, ErrInvalidAuth
	}

	if req.DeviceID != "" && req.DeviceID != sup.DeviceID {
		deviceName := req.DeviceName
		if deviceName == "" {
			deviceName = "Unknown device"
		}
		if err := s.repo.UpdateDevice(ctx, sup.ID, req.DeviceID, deviceName); err != nil {
			s.log.Warn("update device binding", "supervisor_id", sup.ID, "error", err)
		}
	}

	token, err := s.sessions.Create(ctx, sup.ID, req.DeviceID)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("create session: %w", err)
	}

	return LoginResponse{
		UserID:        sup.ID,
		Name:          sup.Name,
		Email:         sup.Email,
		Role:          sup.Role,
		AssignedSites: sup.AssignedSites,
		Token:         token,
	}, nil
}

func (s *Service) Find(ctx context.Context, id string) (Supervisor, error) {
	return s.repo.FindByID(ctx, id)
}

// Provision заводит супервайзера для набора объектов
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (string, error) {
	username := normalizeUsername(req.Username)
	if err := s.validator.ValidateUsername(username); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.validator.ValidatePassword(req.Password); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(req.AssignedSites) == 0 {
		return "", fmt.Errorf("%w: at least one site is required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	sup := Supervisor{
		ID:            "sup-" + username,
		Username:      username,
		Name:          req.Name,
		Email:         req.Email,
		Role:          RoleSupervisor,
		PasswordHash:  string(hash),
		AssignedSites: req.AssignedSites,
	}
	if sup.Name == "" {
		sup.Name = username
	}

	if err := s.repo.Create(ctx, sup); err != nil {
		return "", err
	}

	return sup.ID, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
