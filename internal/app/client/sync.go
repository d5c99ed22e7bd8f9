package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/attendance"
)

type syncLedger interface {
	UnsyncedAttendance(ctx context.Context) ([]attendance.Record, error)
	MarkAttendanceSynced(ctx context.Context, id int64) error
	LocationLogs(ctx context.Context) ([]attendance.LocationLog, error)
	DeleteLocationLog(ctx context.Context, id int64) error
}

type syncRemote interface {
	SyncAttendance(ctx context.Context, items []attendance.SyncItem) (attendance.SyncResponse, error)
	PostLocation(ctx context.Context, req attendance.LocationRequest) error
}

// SyncResult результат синхронизации
type SyncResult struct {
	Success         bool                 `json:"success"`
	Uploaded        int                  `json:"uploaded"`
	Duplicates      int                  `json:"duplicates"`
	Failed          int                  `json:"failed"`
	LocationsSent   int                  `json:"locations_sent"`
	LocationsFailed int                  `json:"locations_failed"`
	Cancelled       bool                 `json:"cancelled"`
	LastError       string               `json:"last_error,omitempty"`
	LastErrorKind   attendance.ErrorKind `json:"last_error_kind,omitempty"`
	StartTime       time.Time            `json:"start_time"`
	EndTime         time.Time            `json:"end_time"`
	Duration        time.Duration        `json:"duration"`
}

func (r *SyncResult) fail(kind attendance.ErrorKind, err error) {
	r.Success = false
	r.LastErrorKind = kind
	if err != nil {
		r.LastError = err.Error()
	}
}

// SyncStats статистика синхронизации
type SyncStats struct {
	TotalSyncs     int       `json:"total_syncs"`
	LastSuccessful time.Time `json:"last_successful"`
	LastFailed     time.Time `json:"last_failed"`
	TotalUploaded  int       `json:"total_uploaded"`
	TotalErrors    int       `json:"total_errors"`
}

// SyncService выгружает неотправленные отметки и журнал перемещений.
// Одновременно выполняется не больше одного прогона.
type SyncService struct {
	ledger  syncLedger
	remote  syncRemote
	photos  PhotoResolver
	timeout time.Duration
	log     *slog.Logger

	runMu   sync.Mutex
	trigger chan string

	mu       sync.RWMutex
	stats    SyncStats
	onResult func(*SyncResult)
}

func NewSyncService(ledger syncLedger, remote syncRemote, photos PhotoResolver, timeout time.Duration, log *slog.Logger) *SyncService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SyncService{
		ledger:  ledger,
		remote:  remote,
		photos:  photos,
		timeout: timeout,
		log:     log.With(slog.String("component", "sync")),
		trigger: make(chan string, 1),
	}
}

// OnResult задает обработчик, вызываемый после каждого прогона
func (s *SyncService) OnResult(fn func(*SyncResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// Trigger запрашивает прогон и не блокируется.
// Запросы во время прогона схлопываются в один следующий прогон.
func (s *SyncService) Trigger(reason string) {
	select {
	case s.trigger <- reason:
		s.log.Debug("sync requested", "reason", reason)
	default:
	}
}

// Start обрабатывает запросы Trigger до отмены контекста
func (s *SyncService) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Синхронизация остановлена")
			return nil
		case reason := <-s.trigger:
			s.log.Debug("sync run", "reason", reason)
			s.Run(ctx)
		}
	}
}

// Run выполняет один прогон. Ошибки по записям не прерывают прогон,
// итог доступен в SyncResult.
func (s *SyncService) Run(ctx context.Context) *SyncResult {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	result := &SyncResult{
		Success:   true,
		StartTime: time.Now(),
	}

	records, err := s.ledger.UnsyncedAttendance(ctx)
	if err != nil {
		s.log.Error("load unsynced attendance", "error", err)
		result.fail(attendance.KindLocalStorage, err)
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			result.Cancelled = true
			result.fail(attendance.KindConnectivity, ctx.Err())
			break
		}
		s.upload(ctx, rec, result)
	}

	s.drainLocations(ctx, result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	s.record(result)

	s.log.Info("sync finished",
		"success", result.Success,
		"uploaded", result.Uploaded,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
		"locations", result.LocationsSent,
		"duration", result.Duration,
	)

	return result
}

// upload отправляет одну отметку. Запрос не прерывается отменой ctx,
// он завершается или истекает по таймауту.
func (s *SyncService) upload(ctx context.Context, rec attendance.Record, result *SyncResult) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	photoURL := rec.PhotoRef
	if s.photos != nil {
		photoURL = s.photos.Resolve(rec.PhotoRef)
	}

	item := attendance.FromRecord(rec, uuid.NewString(), photoURL)
	resp, err := s.remote.SyncAttendance(reqCtx, []attendance.SyncItem{item})
	outcome, cause := classify(resp, err)

	log := s.log.With("record_id", rec.ID, "employee_id", rec.EmployeeID, "outcome", outcome.String())

	switch outcome {
	case OutcomeAccepted, OutcomeDuplicate:
		if err := s.ledger.MarkAttendanceSynced(reqCtx, rec.ID); err != nil {
			log.Error("mark synced", "error", err)
			result.Failed++
			result.fail(attendance.KindLocalStorage, err)
			return
		}
		if outcome == OutcomeDuplicate {
			log.Info("record already on server", "cause", cause)
			result.Duplicates++
			return
		}
		log.Debug("record uploaded")
		result.Uploaded++
	default:
		log.Warn("record not uploaded", "error", cause)
		result.Failed++
		result.fail(outcome.Kind(), cause)
	}
}

// drainLocations отправляет журнал перемещений. Ошибки журнала
// не влияют на успех прогона.
func (s *SyncService) drainLocations(ctx context.Context, result *SyncResult) {
	logs, err := s.ledger.LocationLogs(ctx)
	if err != nil {
		s.log.Error("load location logs", "error", err)
		return
	}

	for _, entry := range logs {
		if ctx.Err() != nil {
			return
		}

		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		err := s.remote.PostLocation(reqCtx, entry.ToLocationRequest())
		if err == nil {
			err = s.ledger.DeleteLocationLog(reqCtx, entry.ID)
		}
		cancel()

		if err != nil {
			s.log.Debug("location log not sent", "log_id", entry.ID, "error", err)
			result.LocationsFailed++
			continue
		}
		result.LocationsSent++
	}
}

func (s *SyncService) record(result *SyncResult) {
	s.mu.Lock()
	s.stats.TotalSyncs++
	s.stats.TotalUploaded += result.Uploaded
	if result.Success {
		s.stats.LastSuccessful = result.EndTime
	} else {
		s.stats.LastFailed = result.EndTime
		s.stats.TotalErrors += result.Failed
	}
	fn := s.onResult
	s.mu.Unlock()

	if fn != nil {
		fn(result)
	}
}

func (s *SyncService) Stats() SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
