package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/geofence"
	"sitekeeper/internal/domain/site"
)

var ErrNoFix = errors.New("location fix unavailable")

// LocationSource отдает текущую точку устройства
type LocationSource interface {
	Current(ctx context.Context) (geofence.Sample, error)
}

// StaticSource всегда отдает одну и ту же точку
type StaticSource struct {
	mu     sync.RWMutex
	sample *geofence.Sample
}

func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) Set(sample geofence.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sample = &sample
}

func (s *StaticSource) Current(context.Context) (geofence.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sample == nil {
		return geofence.Sample{}, ErrNoFix
	}
	sample := *s.sample
	if sample.At.IsZero() {
		sample.At = time.Now()
	}
	return sample, nil
}

// FileSource читает точку из JSON-файла {"lat":..,"lng":..,"accuracy":..}.
// Файл обновляет внешний процесс, например gpsd-обвязка.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Current(context.Context) (geofence.Sample, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return geofence.Sample{}, ErrNoFix
		}
		return geofence.Sample{}, fmt.Errorf("ошибка чтения файла геолокации: %w", err)
	}

	var sample geofence.Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return geofence.Sample{}, fmt.Errorf("ошибка разбора файла геолокации: %w", err)
	}
	if sample.Latitude == 0 && sample.Longitude == 0 {
		return geofence.Sample{}, ErrNoFix
	}
	if sample.At.IsZero() {
		sample.At = time.Now()
	}
	return sample, nil
}

type samplerLedger interface {
	AppendLocationLog(ctx context.Context, entry attendance.LocationLog) (int64, error)
}

// Identity супервайзер, от имени которого пишется журнал
type Identity struct {
	SupervisorID   string
	SupervisorName string
}

// Sampler периодически опрашивает источник и ведет журнал переходов геозоны
type Sampler struct {
	source   LocationSource
	monitor  *geofence.Monitor
	ledger   samplerLedger
	interval time.Duration
	log      *slog.Logger

	mu       sync.RWMutex
	site     *site.Site
	identity Identity
}

func NewSampler(source LocationSource, monitor *geofence.Monitor, ledger samplerLedger, interval time.Duration, log *slog.Logger) *Sampler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Sampler{
		source:   source,
		monitor:  monitor,
		ledger:   ledger,
		interval: interval,
		log:      log.With(slog.String("component", "sampler")),
	}
}

// Use задает объект наблюдения и начинает новую сессию
func (s *Sampler) Use(st site.Site, who Identity) {
	s.mu.Lock()
	s.site = &st
	s.identity = who
	s.mu.Unlock()

	s.monitor.Reset()
}

func (s *Sampler) current() (site.Site, Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.site == nil {
		return site.Site{}, Identity{}, false
	}
	return *s.site, s.identity, true
}

// Start опрашивает источник до отмены контекста
func (s *Sampler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Опрос геолокации остановлен")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sampler) tick(ctx context.Context) {
	if _, err := s.Sample(ctx); err != nil && !errors.Is(err, ErrNoFix) {
		s.log.Warn("location sample failed", "error", err)
	}
}

// Sample снимает одну точку. Переход пишется в журнал, если это первая
// точка сессии или статус геозоны поменялся.
func (s *Sampler) Sample(ctx context.Context) (geofence.Transition, error) {
	st, who, ok := s.current()
	if !ok {
		return geofence.Transition{}, ErrNoFix
	}

	sample, err := s.source.Current(ctx)
	if err != nil {
		return geofence.Transition{}, err
	}

	tr, logWorthy := s.monitor.Observe(sample, st)
	if !logWorthy {
		return tr, nil
	}

	s.log.Info("geofence status changed",
		"site_id", st.ID,
		"status", tr.Status.String(),
		"distance_m", int(tr.DistanceMeters),
	)

	_, err = s.ledger.AppendLocationLog(ctx, attendance.LocationLog{
		SupervisorID:   who.SupervisorID,
		SupervisorName: who.SupervisorName,
		SiteID:         st.ID,
		Latitude:       sample.Latitude,
		Longitude:      sample.Longitude,
		Status:         tr.Status.String(),
		Timestamp:      sample.At,
	})
	if err != nil {
		s.monitor.Retry(tr)
		return tr, fmt.Errorf("ошибка записи журнала перемещений: %w", err)
	}

	return tr, nil
}
