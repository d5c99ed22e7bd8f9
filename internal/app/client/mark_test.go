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
	"sitekeeper/internal/domain/geofence"
	"sitekeeper/internal/utils/logger"
)

func (m *MockRemote) AttendanceForEmployee(ctx context.Context, employeeID string, month, year int) ([]attendance.RemoteRecord, error) {
	args := m.Called(ctx, employeeID, month, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]attendance.RemoteRecord), args.Error(1)
}

var markNow = time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

func newTestMarker(t *testing.T, remote markRemote, sample *geofence.Sample) (*Marker, *Ledger) {
	t.Helper()
	ledger := newTestLedger(t)
	monitor := geofence.NewMonitor()
	if sample != nil {
		monitor.Observe(*sample, testSite)
	}
	m := NewMarker(ledger, remote, monitor, time.Second, time.UTC, logger.Discard())
	m.now = func() time.Time { return markNow }
	return m, ledger
}

func markRequest(employeeID string) MarkRequest {
	return MarkRequest{
		EmployeeID:     employeeID,
		SiteID:         "site-1",
		PhotoRef:       "file:/tmp/emp.jpg",
		DeviceID:       "dev-1",
		SupervisorName: "Alice",
	}
}

func TestMarker_Recorded(t *testing.T) {
	ctx := context.Background()
	remote := new(MockRemote)
	remote.On("AttendanceForEmployee", mock.Anything, "emp-1", 3, 2026).Return([]attendance.RemoteRecord{
		{EmployeeID: "emp-1", Date: "2026-03-01"},
	}, nil)

	s := inside()
	m, ledger := newTestMarker(t, remote, &s)

	var recorded []string
	m.OnRecorded(func(siteID, date string) { recorded = append(recorded, siteID+"/"+date) })

	res, err := m.MarkPresent(ctx, markRequest("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, MarkRecorded, res.Outcome)
	assert.Equal(t, "2026-03-02", res.Date)
	assert.Positive(t, res.RecordID)
	assert.Equal(t, []string{"site-1/2026-03-02"}, recorded)

	recs, err := ledger.AttendanceForEmployee(ctx, "emp-1", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, attendance.SyncPending, recs[0].SyncState)
	assert.Equal(t, attendance.StatusPresent, recs[0].Status)
	assert.Equal(t, attendance.DirectionIn, recs[0].Direction)
	assert.Equal(t, s.Latitude, recs[0].Latitude)
	assert.Equal(t, "file:/tmp/emp.jpg", recs[0].PhotoRef)
	assert.True(t, recs[0].CheckInTime.Equal(markNow))

	remote.AssertExpectations(t)
}

func TestMarker_Gate(t *testing.T) {
	ctx := context.Background()

	t.Run("no fix yet", func(t *testing.T) {
		remote := new(MockRemote)
		m, ledger := newTestMarker(t, remote, nil)

		res, err := m.MarkPresent(ctx, markRequest("emp-1"))
		require.NoError(t, err)
		assert.Equal(t, MarkAwaitingFix, res.Outcome)

		n, err := ledger.CountUnsynced(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		remote.AssertNotCalled(t, "AttendanceForEmployee", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("outside geofence", func(t *testing.T) {
		remote := new(MockRemote)
		s := outside()
		m, ledger := newTestMarker(t, remote, &s)

		res, err := m.MarkPresent(ctx, markRequest("emp-1"))
		assert.ErrorIs(t, err, attendance.ErrOutsideGeofence)
		assert.Equal(t, MarkRejected, res.Outcome)
		assert.Greater(t, res.DistanceMeters, testSite.GeofenceRadius)

		n, err := ledger.CountUnsynced(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("invalid request", func(t *testing.T) {
		s := inside()
		m, _ := newTestMarker(t, new(MockRemote), &s)

		_, err := m.MarkPresent(ctx, MarkRequest{SiteID: "site-1"})
		assert.ErrorIs(t, err, attendance.ErrInvalidRecord)
	})
}

func TestMarker_AlreadyMarkedLocally(t *testing.T) {
	ctx := context.Background()
	remote := new(MockRemote)
	remote.On("AttendanceForEmployee", mock.Anything, "emp-1", 3, 2026).Return([]attendance.RemoteRecord{}, nil).Once()

	s := inside()
	m, ledger := newTestMarker(t, remote, &s)

	first, err := m.MarkPresent(ctx, markRequest("emp-1"))
	require.NoError(t, err)
	require.Equal(t, MarkRecorded, first.Outcome)

	second, err := m.MarkPresent(ctx, markRequest("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, MarkAlreadyMarked, second.Outcome)
	assert.Equal(t, first.RecordID, second.RecordID)

	n, err := ledger.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	remote.AssertExpectations(t)
}

func TestMarker_AlreadyMarkedRemotely(t *testing.T) {
	ctx := context.Background()
	remote := new(MockRemote)
	remote.On("AttendanceForEmployee", mock.Anything, "emp-1", 3, 2026).Return([]attendance.RemoteRecord{
		{EmployeeID: "emp-1", Date: "2026-03-02T00:00:00.000Z", IsLocked: true},
	}, nil)

	s := inside()
	m, ledger := newTestMarker(t, remote, &s)

	var refreshed []string
	m.OnAlreadyMarked(func(siteID, date string) { refreshed = append(refreshed, siteID+"/"+date) })
	m.OnRecorded(func(string, string) { t.Error("record must not be created") })

	res, err := m.MarkPresent(ctx, markRequest("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, MarkAlreadyMarked, res.Outcome)
	assert.Equal(t, []string{"site-1/2026-03-02"}, refreshed)

	n, err := ledger.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarker_PreCheckOffline(t *testing.T) {
	ctx := context.Background()
	remote := new(MockRemote)
	remote.On("AttendanceForEmployee", mock.Anything, "emp-1", 3, 2026).
		Return(nil, &ConnectivityError{Err: errors.New("connection refused")})

	s := inside()
	m, ledger := newTestMarker(t, remote, &s)

	res, err := m.MarkPresent(ctx, markRequest("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, MarkRecorded, res.Outcome)

	n, err := ledger.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMarker_Today(t *testing.T) {
	tz := time.FixedZone("IST", 5*3600+1800)
	m := NewMarker(nil, nil, geofence.NewMonitor(), time.Second, tz, logger.Discard())
	m.now = func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, "2026-03-02", m.Today())
}
