package attendance

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sitekeeper/internal/app/server/api/http/middleware/auth"
	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/supervisor"
	"sitekeeper/internal/utils/logger"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Sync(ctx context.Context, p attendance.Principal, items []attendance.SyncItem) (attendance.SyncResponse, error) {
	args := m.Called(ctx, p, items)
	return args.Get(0).(attendance.SyncResponse), args.Error(1)
}

func (m *MockService) List(ctx context.Context, p attendance.Principal, filter attendance.Filter) ([]attendance.RemoteRecord, error) {
	args := m.Called(ctx, p, filter)
	return args.Get(0).([]attendance.RemoteRecord), args.Error(1)
}

func (m *MockService) LogLocation(ctx context.Context, p attendance.Principal, req attendance.LocationRequest) error {
	return m.Called(ctx, p, req).Error(0)
}

var principal = attendance.Principal{SupervisorID: "sup-1", AssignedSites: []string{"site-1"}}

func setup(t *testing.T) (humatest.TestAPI, *MockService) {
	t.Helper()

	svc := &MockService{}
	_, api := humatest.New(t)

	withSupervisor := func(ctx huma.Context, next func(huma.Context)) {
		next(huma.WithContext(ctx, auth.WithSupervisor(ctx.Context(), supervisor.Supervisor{
			ID:            principal.SupervisorID,
			AssignedSites: principal.AssignedSites,
		})))
	}

	NewHandler(svc, logger.Discard(), huma.Middlewares{withSupervisor}).SetupRoutes(api)
	return api, svc
}

func TestHandler_List(t *testing.T) {
	t.Run("by site and month", func(t *testing.T) {
		api, svc := setup(t)
		svc.On("List", mock.Anything, principal, attendance.Filter{SiteID: "site-1", Month: 3, Year: 2026}).
			Return([]attendance.RemoteRecord{
				{ID: "r-1", EmployeeID: "emp-1", SiteID: "site-1", Date: "2026-03-02", Status: attendance.StatusPresent, IsLocked: true},
			}, nil)

		resp := api.Get("/api/attendance?site=site-1&month=3&year=2026")

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"isLocked":true`)
		svc.AssertExpectations(t)
	})

	t.Run("updated after", func(t *testing.T) {
		api, svc := setup(t)
		ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
		svc.On("List", mock.Anything, principal, mock.MatchedBy(func(f attendance.Filter) bool {
			return f.UpdatedAfter.Equal(ts)
		})).Return([]attendance.RemoteRecord(nil), nil)

		resp := api.Get("/api/attendance?site=site-1&updatedAfter=2026-03-02T08:00:00Z")

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "[]", strings.TrimSpace(resp.Body.String()))
	})

	t.Run("bad updatedAfter", func(t *testing.T) {
		api, _ := setup(t)

		resp := api.Get("/api/attendance?site=site-1&updatedAfter=yesterday")

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("foreign site", func(t *testing.T) {
		api, svc := setup(t)
		svc.On("List", mock.Anything, principal, mock.Anything).Return([]attendance.RemoteRecord(nil), attendance.ErrSiteNotAssigned)

		resp := api.Get("/api/attendance?site=site-9")

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("missing filter", func(t *testing.T) {
		api, svc := setup(t)
		svc.On("List", mock.Anything, principal, mock.Anything).Return([]attendance.RemoteRecord(nil), attendance.ErrInvalidRecord)

		resp := api.Get("/api/attendance")

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestHandler_Sync(t *testing.T) {
	api, svc := setup(t)
	svc.On("Sync", mock.Anything, principal, mock.MatchedBy(func(items []attendance.SyncItem) bool {
		return len(items) == 2 && items[0].EmployeeID == "emp-1"
	})).Return(attendance.SyncResponse{
		Success:     true,
		SyncedCount: 1,
		Errors: []attendance.ItemError{{
			EmployeeID: "emp-2",
			Code:       attendance.CodeLocked,
			Error:      attendance.LockedMessage,
		}},
	}, nil)

	item := func(employeeID string) map[string]any {
		return map[string]any{
			"id":          "c-" + employeeID,
			"employeeId":  employeeID,
			"siteId":      "site-1",
			"date":        "2026-03-02",
			"status":      "P",
			"checkInTime": "2026-03-02T09:00:00Z",
		}
	}

	resp := api.Post("/api/attendance/sync", []map[string]any{item("emp-1"), item("emp-2")})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"syncedCount":1`)
	assert.Contains(t, resp.Body.String(), attendance.CodeLocked)
	svc.AssertExpectations(t)
}
