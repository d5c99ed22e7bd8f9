package geofence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitekeeper/internal/domain/site"
)

var testSite = site.Site{
	ID:             "site-1",
	Latitude:       12.9716,
	Longitude:      77.5946,
	GeofenceRadius: 100,
}

func sampleAt(lat, lng float64) Sample {
	return Sample{Latitude: lat, Longitude: lng, At: time.Now()}
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 0, Distance(10, 10, 10, 10), 1e-9)

	// один градус широты ~111.2 км
	assert.InDelta(t, 111195, Distance(0, 0, 1, 0), 50)

	// симметрия
	a := Distance(12.97, 77.59, 13.08, 80.27)
	b := Distance(13.08, 80.27, 12.97, 77.59)
	assert.InDelta(t, a, b, 1e-6)
}

func TestEvaluate(t *testing.T) {
	t.Run("center is in range", func(t *testing.T) {
		eval := Evaluate(sampleAt(testSite.Latitude, testSite.Longitude), testSite)
		assert.True(t, eval.InRange)
		assert.InDelta(t, 0, eval.DistanceMeters, 1e-6)
	})

	t.Run("boundary is in range", func(t *testing.T) {
		p := sampleAt(testSite.Latitude+0.0008, testSite.Longitude)
		s := testSite
		s.GeofenceRadius = Distance(p.Latitude, p.Longitude, s.Latitude, s.Longitude)

		eval := Evaluate(p, s)
		assert.True(t, eval.InRange)
	})

	t.Run("far point is out of range", func(t *testing.T) {
		eval := Evaluate(sampleAt(testSite.Latitude+0.01, testSite.Longitude), testSite)
		assert.False(t, eval.InRange)
		assert.Greater(t, eval.DistanceMeters, testSite.GeofenceRadius)
		assert.Equal(t, StatusOutOfRange, eval.Status())
	})
}

func TestMonitor_Observe_Transitions(t *testing.T) {
	in := sampleAt(testSite.Latitude, testSite.Longitude)
	out := sampleAt(testSite.Latitude+0.01, testSite.Longitude)

	m := NewMonitor()
	samples := []Sample{in, in, out, out, in}
	var logged []int

	for i, s := range samples {
		if tr, ok := m.Observe(s, testSite); ok {
			logged = append(logged, i)
			if i == 0 {
				assert.True(t, tr.First)
			} else {
				assert.False(t, tr.First)
			}
		}
	}

	assert.Equal(t, []int{0, 2, 4}, logged)
	assert.Equal(t, StatusInRange, m.Status())
}

func TestMonitor_Observe_FirstOutOfRangeIsLogged(t *testing.T) {
	m := NewMonitor()
	tr, ok := m.Observe(sampleAt(testSite.Latitude+0.01, testSite.Longitude), testSite)
	require.True(t, ok)
	assert.Equal(t, StatusOutOfRange, tr.Status)
	assert.Equal(t, "Out of Range", tr.Status.String())
}

func TestMonitor_Observe_RefreshesLastSample(t *testing.T) {
	m := NewMonitor()
	first := sampleAt(testSite.Latitude, testSite.Longitude)
	second := sampleAt(testSite.Latitude+0.0001, testSite.Longitude)

	m.Observe(first, testSite)
	_, ok := m.Observe(second, testSite)
	assert.False(t, ok)

	last, distance, observed := m.Last()
	assert.True(t, observed)
	assert.Equal(t, second, last)
	assert.Greater(t, distance, 0.0)
}

func TestMonitor_Gate(t *testing.T) {
	m := NewMonitor()
	assert.Equal(t, GateAwaitingFix, m.Gate())

	m.Observe(sampleAt(testSite.Latitude+0.01, testSite.Longitude), testSite)
	assert.Equal(t, GateOutOfRange, m.Gate())

	m.Observe(sampleAt(testSite.Latitude, testSite.Longitude), testSite)
	assert.Equal(t, GateOpen, m.Gate())

	m.Reset()
	assert.Equal(t, GateAwaitingFix, m.Gate())
	assert.Equal(t, StatusUnknown, m.Status())
}

func TestMonitor_SiteChangeStartsNewSession(t *testing.T) {
	m := NewMonitor()
	in := sampleAt(testSite.Latitude, testSite.Longitude)
	m.Observe(in, testSite)

	other := testSite
	other.ID = "site-2"
	tr, ok := m.Observe(in, other)
	require.True(t, ok)
	assert.True(t, tr.First)
}

func TestMonitor_RetryRepeatsTransition(t *testing.T) {
	m := NewMonitor()
	in := sampleAt(testSite.Latitude, testSite.Longitude)

	tr, ok := m.Observe(in, testSite)
	require.True(t, ok)
	m.Retry(tr)

	again, ok := m.Observe(in, testSite)
	require.True(t, ok)
	assert.True(t, again.First)
	assert.Equal(t, StatusInRange, again.Status)

	_, ok = m.Observe(in, testSite)
	assert.False(t, ok)
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	m := NewMonitor()
	in := sampleAt(testSite.Latitude, testSite.Longitude)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Observe(in, testSite)
		}()
		go func() {
			defer wg.Done()
			_ = m.Gate()
		}()
	}
	wg.Wait()

	assert.Equal(t, GateOpen, m.Gate())
}
