package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sitekeeper/internal/domain/session"
	"sitekeeper/internal/domain/supervisor"
	"sitekeeper/internal/utils/logger"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, supervisorID, deviceID string) (string, error) {
	args := m.Called(ctx, supervisorID, deviceID)
	return args.String(0), args.Error(1)
}

func (m *MockSessionService) Validate(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockSessionService) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type MockSupervisorService struct {
	mock.Mock
}

func (m *MockSupervisorService) Login(ctx context.Context, req supervisor.LoginRequest) (supervisor.LoginResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(supervisor.LoginResponse), args.Error(1)
}

func (m *MockSupervisorService) Find(ctx context.Context, id string) (supervisor.Supervisor, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(supervisor.Supervisor), args.Error(1)
}

func (m *MockSupervisorService) Provision(ctx context.Context, req supervisor.ProvisionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type whoamiOutput struct {
	Body struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
}

func setup(t *testing.T, sess *MockSessionService, sups *MockSupervisorService) humatest.TestAPI {
	t.Helper()

	_, api := humatest.New(t)
	a := New(sess, sups, logger.Discard())

	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Middlewares: huma.Middlewares{a.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		out := &whoamiOutput{}
		sup, _ := GetSupervisor(ctx)
		out.Body.ID = sup.ID
		out.Body.Token = GetToken(ctx)
		return out, nil
	})

	return api
}

func TestMiddleware(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		sess := &MockSessionService{}
		sups := &MockSupervisorService{}
		sess.On("Validate", mock.Anything, "tok").Return("sup-1", nil)
		sups.On("Find", mock.Anything, "sup-1").Return(supervisor.Supervisor{ID: "sup-1"}, nil)

		resp := setup(t, sess, sups).Get("/whoami", "Authorization: Bearer tok")

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"id":"sup-1"`)
		assert.Contains(t, resp.Body.String(), `"token":"tok"`)
	})

	t.Run("missing header", func(t *testing.T) {
		resp := setup(t, &MockSessionService{}, &MockSupervisorService{}).Get("/whoami")

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("expired session", func(t *testing.T) {
		sess := &MockSessionService{}
		sess.On("Validate", mock.Anything, "old").Return("", session.ErrInvalidSession)

		resp := setup(t, sess, &MockSupervisorService{}).Get("/whoami", "Authorization: Bearer old")

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Contains(t, resp.Body.String(), "Unauthorized")
	})
}

func TestSites(t *testing.T) {
	sess := &MockSessionService{}
	sups := &MockSupervisorService{}
	sess.On("Validate", mock.Anything, "tok").Return("sup-1", nil)
	sups.On("Find", mock.Anything, "sup-1").Return(supervisor.Supervisor{
		ID:            "sup-1",
		AssignedSites: []string{"site-1", "site-2"},
	}, nil)

	sites, err := New(sess, sups, logger.Discard()).Sites(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, []string{"site-1", "site-2"}, sites)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestPrincipal(t *testing.T) {
	_, ok := Principal(context.Background())
	assert.False(t, ok)

	ctx := WithSupervisor(context.Background(), supervisor.Supervisor{ID: "sup-1", AssignedSites: []string{"site-1"}})
	p, ok := Principal(ctx)
	require.True(t, ok)
	assert.Equal(t, "sup-1", p.SupervisorID)
	assert.True(t, p.Assigned("site-1"))
}
