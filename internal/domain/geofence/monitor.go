package geofence

import (
	"sync"

	"sitekeeper/internal/domain/site"
)

// Evaluate проверяет, находится ли точка внутри геозоны объекта.
// Точка ровно на границе считается внутри.
func Evaluate(sample Sample, s site.Site) Evaluation {
	d := Distance(sample.Latitude, sample.Longitude, s.Latitude, s.Longitude)
	return Evaluation{
		InRange:        d <= s.GeofenceRadius,
		DistanceMeters: d,
	}
}

// Monitor хранит последнее известное положение и статус геозоны
type Monitor struct {
	mu       sync.RWMutex
	observed bool
	last     Sample
	status   Status
	distance float64
	siteID   string

	// последний переход не попал в журнал
	retry      bool
	retryFirst bool
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Observe обновляет состояние по новой точке. Второй результат true,
// если это первая точка сессии или статус поменялся.
func (m *Monitor) Observe(sample Sample, s site.Site) (Transition, bool) {
	eval := Evaluate(sample, s)
	status := eval.Status()

	m.mu.Lock()
	defer m.mu.Unlock()

	first := !m.observed || m.siteID != s.ID
	if !first && m.retry {
		first = m.retryFirst
	}
	changed := first || m.retry || status != m.status
	m.retry, m.retryFirst = false, false

	m.observed = true
	m.siteID = s.ID
	m.last = sample
	m.status = status
	m.distance = eval.DistanceMeters

	if !changed {
		return Transition{}, false
	}

	return Transition{
		Sample:         sample,
		Status:         status,
		DistanceMeters: eval.DistanceMeters,
		First:          first,
	}, true
}

// Retry помечает переход как незаписанный: следующая точка той же
// сессии снова вернет переход
func (m *Monitor) Retry(tr Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.observed {
		return
	}
	m.retry = true
	m.retryFirst = m.retryFirst || tr.First
}

// Gate решает, можно ли сейчас отметить присутствие
func (m *Monitor) Gate() Gate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch m.status {
	case StatusInRange:
		return GateOpen
	case StatusOutOfRange:
		return GateOutOfRange
	default:
		return GateAwaitingFix
	}
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Last возвращает последнюю точку и расстояние до центра геозоны
func (m *Monitor) Last() (Sample, float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.distance, m.observed
}

// Reset начинает новую сессию наблюдения
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observed = false
	m.last = Sample{}
	m.status = StatusUnknown
	m.distance = 0
	m.siteID = ""
	m.retry = false
	m.retryFirst = false
}
