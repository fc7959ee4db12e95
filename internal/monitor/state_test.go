package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (r *recorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type testState struct {
	*State
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
	events  *recorder
}

func newTestState(t *testing.T, probability float64) testState {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testStart)
	metrics := observability.NewMetricsForTesting()
	events := &recorder{}
	s := NewState(Options{
		Clock:            clock,
		Logger:           discardLogger(),
		Metrics:          metrics,
		Publisher:        events,
		Seed:             42,
		AlertProbability: probability,
		HistoryCacheSize: 8,
	})
	return testState{State: s, clock: clock, metrics: metrics, events: events}
}

func TestNewState_Seeded(t *testing.T) {
	s := newTestState(t, 0.2)

	assert.Len(t, s.Stations(), 5)
	assert.Len(t, s.Alerts(domain.AlertFilter{}), 5)
	assert.Equal(t, 3, s.PendingCount())
	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.StationsOnline))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.AlertsPending))
}

func TestNewState_Defaults(t *testing.T) {
	s := NewState(Options{})
	assert.Len(t, s.Stations(), 5)
	s.SimulateTick(context.Background())
	s.ClockTick(context.Background())
}

func TestState_StationsReturnsCopy(t *testing.T) {
	s := newTestState(t, 0)

	stations := s.Stations()
	stations[0].Name = "changed"

	st, ok := s.Station("station-1")
	require.True(t, ok)
	assert.Equal(t, "Mukdahan City", st.Name)
}

func TestState_StationLookup(t *testing.T) {
	s := newTestState(t, 0)

	_, ok := s.Station("station-404")
	assert.False(t, ok)

	assert.Len(t, s.StationsByStatus(domain.StatusOffline), 1)
}

func TestState_SimulateTick(t *testing.T) {
	s := newTestState(t, 0)
	before := s.Stations()

	s.clock.Advance(5 * time.Second)
	s.SimulateTick(context.Background())

	after := s.Stations()
	for i := range after {
		if after[i].Status == domain.StatusOffline {
			assert.Equal(t, before[i], after[i])
			continue
		}
		assert.Equal(t, testStart.Add(5*time.Second), after[i].LastUpdated)
	}
	assert.Equal(t, []domain.EventKind{domain.EventStations}, s.events.kinds())
	if diff := cmp.Diff(after, s.events.last().Stations); diff != "" {
		t.Fatalf("published snapshot differs (-state +event):\n%s", diff)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.SimulationTicks))
}

func TestState_AlertTick(t *testing.T) {
	s := newTestState(t, 1)

	s.AlertTick(context.Background())

	alerts := s.Alerts(domain.AlertFilter{})
	require.Len(t, alerts, 6)
	raised := alerts[0]
	assert.Equal(t, domain.AlertPending, raised.Status)
	assert.Equal(t, testStart, raised.Timestamp)
	assert.Equal(t, domain.DefaultAlertMessage, raised.Message)
	st, ok := s.Station(raised.StationID)
	require.True(t, ok)
	assert.Equal(t, st.Name, raised.StationName)

	assert.Equal(t, 4, s.PendingCount())
	assert.Equal(t, []domain.EventKind{domain.EventAlertRaised}, s.events.kinds())
	assert.Equal(t, raised.ID, s.events.last().Alert.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.AlertsGenerated.WithLabelValues(string(raised.Type), "generator")))
}

func TestState_AlertTickNeverFiresAtZeroProbability(t *testing.T) {
	s := newTestState(t, 0)

	for range 100 {
		s.AlertTick(context.Background())
	}

	assert.Len(t, s.Alerts(domain.AlertFilter{}), 5)
	assert.Empty(t, s.events.kinds())
}

func TestState_RaiseAlert(t *testing.T) {
	s := newTestState(t, 0)

	a, err := s.RaiseAlert(context.Background(), "station-2", domain.AlertWeather, "Flash flood warning")
	require.NoError(t, err)

	assert.Equal(t, "Don Tan", a.StationName)
	assert.Equal(t, "Flash flood warning", a.Message)
	assert.Equal(t, a, s.Alerts(domain.AlertFilter{})[0], "newest first")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.AlertsGenerated.WithLabelValues("weather", "manual")))
}

func TestState_RaiseAlertUnknownStation(t *testing.T) {
	s := newTestState(t, 0)

	_, err := s.RaiseAlert(context.Background(), "station-404", domain.AlertError, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownStation))
	assert.Len(t, s.Alerts(domain.AlertFilter{}), 5)
	assert.Empty(t, s.events.kinds())
}

func TestState_ResolveAlertPublishesOnce(t *testing.T) {
	s := newTestState(t, 0)

	resolved, ok := s.ResolveAlert(context.Background(), "alert-1")
	require.True(t, ok)
	assert.Equal(t, domain.AlertResolved, resolved.Status)
	assert.Equal(t, 2, s.PendingCount())

	_, ok = s.ResolveAlert(context.Background(), "alert-1")
	assert.False(t, ok)
	_, ok = s.ResolveAlert(context.Background(), "alert-404")
	assert.False(t, ok)

	assert.Equal(t, []domain.EventKind{domain.EventAlertResolved}, s.events.kinds())
	assert.Equal(t, 2, s.PendingCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.AlertsResolved))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.AlertsPending))
}

func TestState_ConcurrentAlertWriters(t *testing.T) {
	s := newTestState(t, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 50 {
			s.AlertTick(context.Background())
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range []string{"alert-1", "alert-2", "alert-5"} {
			s.ResolveAlert(context.Background(), id)
			_ = s.Summary()
		}
	}()
	wg.Wait()

	assert.Len(t, s.Alerts(domain.AlertFilter{}), 55)
	assert.Equal(t, 50, s.PendingCount())
}

func TestState_HistoryCached(t *testing.T) {
	s := newTestState(t, 0)

	first := s.History("station-1", 7)
	second := s.History("station-1", 7)

	require.Len(t, first, 7)
	assert.Same(t, &first[0], &second[0], "a hit returns the cached series")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.HistoryCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.HistoryCache.WithLabelValues("miss")))

	assert.Len(t, s.History("station-1", 30), 30)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.HistoryCache.WithLabelValues("miss")))
}

func TestState_HistoryPurgeRollsDates(t *testing.T) {
	s := newTestState(t, 0)
	before := s.History("station-3", 5)

	s.clock.Advance(24 * time.Hour)
	assert.Equal(t, before, s.History("station-3", 5), "cached until purged")

	assert.Equal(t, 1, s.PurgeHistory())
	after := s.History("station-3", 5)

	assert.Equal(t, "2024-01-16", after[4].Date)
	for i := range after {
		assert.Equal(t, before[i].ET0, after[i].ET0, "values are stable per key")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.HistoryPurges))
}

func TestState_Summary(t *testing.T) {
	s := newTestState(t, 0)

	sum := s.Summary()

	assert.Equal(t, 5, sum.TotalStations)
	assert.Equal(t, 3, sum.OnlineCount)
	assert.Equal(t, 3, sum.PendingAlerts)
	assert.InDelta(t, (4.2+3.8+4.1)/3, sum.AverageET0, 1e-9)
	assert.Equal(t, testStart, sum.ServerTime)
}

func TestState_SetAddresses(t *testing.T) {
	s := newTestState(t, 0)

	s.SetAddresses([]domain.Station{
		{ID: "station-2", Address: "Don Tan, Mukdahan, Thailand"},
		{ID: "station-404", Address: "nowhere"},
	})

	st, _ := s.Station("station-2")
	assert.Equal(t, "Don Tan, Mukdahan, Thailand", st.Address)
	other, _ := s.Station("station-1")
	assert.Empty(t, other.Address)
}

func TestState_PublishErrorDoesNotFailOperation(t *testing.T) {
	failing := PublisherFunc(func(context.Context, domain.Event) error { return errors.New("broker down") })
	s := NewState(Options{
		Clock:     clockwork.NewFakeClockAt(testStart),
		Logger:    discardLogger(),
		Publisher: failing,
	})

	_, ok := s.ResolveAlert(context.Background(), "alert-2")
	assert.True(t, ok)
}

func TestFanOut_DeliversToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	failing := PublisherFunc(func(context.Context, domain.Event) error { return errors.New("boom") })

	err := FanOut{a, failing, b}.Publish(context.Background(), domain.ClockEvent(testStart))

	require.Error(t, err)
	assert.Len(t, a.kinds(), 1)
	assert.Len(t, b.kinds(), 1)
}
