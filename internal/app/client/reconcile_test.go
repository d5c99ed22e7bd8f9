package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/utils/logger"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) AttendanceBySite(ctx context.Context, siteID string, month, year int) ([]attendance.RemoteRecord, error) {
	args := m.Called(ctx, siteID, month, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]attendance.RemoteRecord), args.Error(1)
}

func TestMerger_Refresh(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	insert(t, ledger, "emp-1")
	syncedID := insert(t, ledger, "emp-2")
	require.NoError(t, ledger.MarkAttendanceSynced(ctx, syncedID))
	insert(t, ledger, "emp-3")

	other := testRecord("emp-4", "2026-03-02")
	other.SiteID = "site-2"
	_, err := ledger.InsertAttendance(ctx, other)
	require.NoError(t, err)

	remote := new(MockRemote)
	remote.On("AttendanceBySite", mock.Anything, "site-1", 3, 2026).Return([]attendance.RemoteRecord{
		{EmployeeID: "emp-1", Date: "2026-03-02", Status: attendance.StatusPresent, CheckInTime: "2026-03-02T08:00:00Z", IsLocked: true},
		{EmployeeID: "emp-5", Date: "2026-03-02", Status: attendance.StatusAbsent, IsLocked: false},
		{EmployeeID: "emp-6", Date: "2026-03-01", Status: attendance.StatusPresent, IsLocked: true},
	}, nil)

	view, err := NewMerger(ledger, remote, time.Second, logger.Discard()).Refresh(ctx, "site-1", "2026-03-02")
	require.NoError(t, err)

	assert.Equal(t, attendance.SourceRemote, view.Source)
	require.Len(t, view.Entries, 4)

	// заблокированная серверная запись не перекрывается локальной
	assert.Equal(t, "2026-03-02T08:00:00Z", view.Entries["emp-1"].CheckInTime)
	assert.True(t, view.Entries["emp-1"].IsLocked)

	assert.True(t, view.Entries["emp-2"].IsSynced)
	assert.True(t, view.Entries["emp-2"].IsLocked)

	assert.False(t, view.Entries["emp-3"].IsSynced)
	assert.False(t, view.Entries["emp-3"].IsLocked)

	assert.Equal(t, attendance.StatusAbsent, view.Entries["emp-5"].Status)
	assert.NotContains(t, view.Entries, "emp-4")
	assert.NotContains(t, view.Entries, "emp-6")
}

func TestMerger_UnlockedRemoteOverlaid(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	id := insert(t, ledger, "emp-1")
	require.NoError(t, ledger.MarkAttendanceSynced(ctx, id))

	remote := new(MockRemote)
	remote.On("AttendanceBySite", mock.Anything, "site-1", 3, 2026).Return([]attendance.RemoteRecord{
		{EmployeeID: "emp-1", Date: "2026-03-02T00:00:00Z", Status: attendance.StatusAbsent, IsLocked: false},
	}, nil)

	view, err := NewMerger(ledger, remote, time.Second, logger.Discard()).Refresh(ctx, "site-1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, view.Entries["emp-1"].Status)
}

func TestMerger_PendingOverwritesUnlockedRemote(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	insert(t, ledger, "emp-1")

	remote := new(MockRemote)
	remote.On("AttendanceBySite", mock.Anything, "site-1", 3, 2026).Return([]attendance.RemoteRecord{
		{EmployeeID: "emp-1", Date: "2026-03-02", Status: attendance.StatusAbsent, IsLocked: false},
	}, nil)

	view, err := NewMerger(ledger, remote, time.Second, logger.Discard()).Refresh(ctx, "site-1", "2026-03-02")
	require.NoError(t, err)

	entry := view.Entries["emp-1"]
	assert.Equal(t, attendance.StatusPresent, entry.Status)
	assert.False(t, entry.IsSynced)
	assert.False(t, entry.IsLocked)
}

func TestMerger_FallbackToLocal(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	insert(t, ledger, "emp-1")

	remote := new(MockRemote)
	remote.On("AttendanceBySite", mock.Anything, "site-1", 3, 2026).Return(nil, &ConnectivityError{Err: errors.New("offline")})

	view, err := NewMerger(ledger, remote, time.Second, logger.Discard()).Refresh(ctx, "site-1", "2026-03-02")
	require.NoError(t, err)

	assert.Equal(t, attendance.SourceLocalOnly, view.Source)
	require.Len(t, view.Entries, 1)
	assert.False(t, view.Entries["emp-1"].IsSynced)
}

func TestMerger_BadDate(t *testing.T) {
	_, err := NewMerger(newTestLedger(t), new(MockRemote), time.Second, logger.Discard()).
		Refresh(context.Background(), "site-1", "02/03/2026")
	assert.ErrorIs(t, err, attendance.ErrInvalidRecord)
}
