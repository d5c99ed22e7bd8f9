package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/utils/logger"
)

func syncServer(t *testing.T, handle func(item attendance.SyncItem) (int, string)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/attendance/sync", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var items []attendance.SyncItem
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&items)) || !assert.Len(t, items, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := handle(items[0])
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/api/supervisor/location", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestSync(t *testing.T, srv *httptest.Server) (*SyncService, *Ledger) {
	t.Helper()
	ledger := newTestLedger(t)
	remote := newTestHTTPClient(t, srv)
	return NewSyncService(ledger, remote, NewFileResolver(logger.Discard()), time.Second, logger.Discard()), ledger
}

func insert(t *testing.T, l *Ledger, employeeID string) int64 {
	t.Helper()
	id, err := l.InsertAttendance(context.Background(), testRecord(employeeID, "2026-03-02"))
	require.NoError(t, err)
	return id
}

func TestSyncService_Accepted(t *testing.T) {
	srv, calls := syncServer(t, func(item attendance.SyncItem) (int, string) {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, attendance.DirectionIn, item.Type)
		if assert.NotNil(t, item.Location) {
			assert.Equal(t, 12.9716, item.Location.Lat)
		}
		return http.StatusOK, `{"success":true,"syncedCount":1}`
	})
	svc, ledger := newTestSync(t, srv)
	insert(t, ledger, "emp-1")
	insert(t, ledger, "emp-2")

	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, int32(2), calls.Load())

	count, err := ledger.CountUnsynced(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	result = svc.Run(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSyncService_MixedOutcomes(t *testing.T) {
	srv, _ := syncServer(t, func(item attendance.SyncItem) (int, string) {
		switch item.EmployeeID {
		case "emp-1":
			return http.StatusOK, `{"success":true,"syncedCount":1}`
		case "emp-2":
			return http.StatusOK, `{"success":true,"syncedCount":0,"errors":[{"employeeId":"emp-2","code":"ATTENDANCE_LOCKED","error":"Attendance already marked for this date. Updates are locked."}]}`
		default:
			return http.StatusInternalServerError, `{"error":"failed to store attendance"}`
		}
	})
	svc, ledger := newTestSync(t, srv)
	insert(t, ledger, "emp-1")
	insert(t, ledger, "emp-2")
	failedID := insert(t, ledger, "emp-3")

	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, attendance.KindServerRejection, result.LastErrorKind)
	assert.Contains(t, result.LastError, "failed to store attendance")

	pending, err := ledger.UnsyncedAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, failedID, pending[0].ID)
}

func TestSyncService_EmptyResponseIsFailure(t *testing.T) {
	srv, _ := syncServer(t, func(attendance.SyncItem) (int, string) {
		return http.StatusOK, ""
	})
	svc, ledger := newTestSync(t, srv)
	insert(t, ledger, "emp-1")

	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, attendance.KindServerRejection, result.LastErrorKind)
	count, err := ledger.CountUnsynced(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncService_Offline(t *testing.T) {
	srv, _ := syncServer(t, func(attendance.SyncItem) (int, string) {
		return http.StatusOK, `{"success":true}`
	})
	svc, ledger := newTestSync(t, srv)
	insert(t, ledger, "emp-1")
	_, err := ledger.AppendLocationLog(context.Background(), attendance.LocationLog{SupervisorID: "sup-1", SiteID: "site-1", Status: "In Range"})
	require.NoError(t, err)
	srv.Close()

	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, attendance.KindConnectivity, result.LastErrorKind)
	assert.Equal(t, 1, result.LocationsFailed)

	count, err := ledger.CountUnsynced(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	logs, err := ledger.LocationLogs(context.Background())
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestSyncService_LocationDrainIndependent(t *testing.T) {
	srv, _ := syncServer(t, func(attendance.SyncItem) (int, string) {
		return http.StatusOK, `{"success":true,"syncedCount":1}`
	})
	svc, ledger := newTestSync(t, srv)
	insert(t, ledger, "emp-1")
	for i := 0; i < 3; i++ {
		_, err := ledger.AppendLocationLog(context.Background(), attendance.LocationLog{SupervisorID: "sup-1", SiteID: "site-1", Status: "In Range"})
		require.NoError(t, err)
	}

	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.LocationsSent)
	logs, err := ledger.LocationLogs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, logs)
}

type fakeRemote struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	onCall  func(n int)
}

func (f *fakeRemote) SyncAttendance(_ context.Context, _ []attendance.SyncItem) (attendance.SyncResponse, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(n)
	}
	if n == 1 && f.started != nil {
		close(f.started)
		<-f.release
	}
	return attendance.SyncResponse{Success: true, SyncedCount: 1}, nil
}

func (f *fakeRemote) PostLocation(context.Context, attendance.LocationRequest) error {
	return errors.New("not used")
}

func (f *fakeRemote) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSyncService_TriggersCoalesce(t *testing.T) {
	ledger := newTestLedger(t)
	insert(t, ledger, "emp-1")

	remote := &fakeRemote{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewSyncService(ledger, remote, nil, time.Second, logger.Discard())

	var runs atomic.Int32
	svc.OnResult(func(*SyncResult) { runs.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Start(ctx) }()

	svc.Trigger("first")
	<-remote.started

	for i := 0; i < 5; i++ {
		svc.Trigger("burst")
	}
	close(remote.release)

	require.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, 1, remote.Calls())
	assert.Equal(t, 2, svc.Stats().TotalSyncs)
}

func TestSyncService_CancelBetweenRecords(t *testing.T) {
	ledger := newTestLedger(t)
	first := insert(t, ledger, "emp-1")
	insert(t, ledger, "emp-2")

	ctx, cancel := context.WithCancel(context.Background())
	remote := &fakeRemote{onCall: func(int) { cancel() }}
	svc := NewSyncService(ledger, remote, nil, time.Second, logger.Discard())

	result := svc.Run(ctx)

	assert.True(t, result.Cancelled)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 1, remote.Calls())

	pending, err := ledger.UnsyncedAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.NotEqual(t, first, pending[0].ID)
}
