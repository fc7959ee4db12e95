// Package monitor owns the live station registry and alert log, and drives the
// periodic simulation, alert and clock tasks over them.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Options configures a State. Zero values fall back to the seeded registry,
// the real clock and a discarding publisher.
type Options struct {
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Publisher Publisher

	// Seed feeds the simulation and alert random sources.
	Seed             uint64
	AlertProbability float64
	HistoryCacheSize int

	Stations []domain.Station
	Alerts   []domain.Alert
}

// State is the in-memory view of every station and alert. Readers get copies;
// writers replace whole snapshots.
type State struct {
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	publisher Publisher

	stations atomic.Pointer[[]domain.Station]

	mu     sync.Mutex
	alerts []domain.Alert

	history *historyCache

	// Each random source is owned by exactly one task goroutine.
	simRand          domain.Rand
	alertRand        domain.Rand
	alertProbability float64
}

// NewState builds the monitor state from opts.
func NewState(opts Options) *State {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Publisher == nil {
		opts.Publisher = discardPublisher{}
	}
	now := opts.Clock.Now()
	if opts.Stations == nil {
		opts.Stations = domain.SeedStations(now)
	}
	if opts.Alerts == nil {
		opts.Alerts = domain.SeedAlerts(now)
	}

	s := &State{
		clock:            opts.Clock,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		publisher:        opts.Publisher,
		alerts:           slices.Clone(opts.Alerts),
		history:          newHistoryCache(opts.HistoryCacheSize, opts.Metrics),
		simRand:          domain.NewRand(opts.Seed),
		alertRand:        domain.NewRand(opts.Seed + 1),
		alertProbability: opts.AlertProbability,
	}
	stations := slices.Clone(opts.Stations)
	s.stations.Store(&stations)
	s.metrics.StationsOnline.Set(float64(domain.OnlineCount(stations)))
	s.metrics.AlertsPending.Set(float64(domain.PendingCount(s.alerts)))
	return s
}

func (s *State) snapshot() []domain.Station {
	return *s.stations.Load()
}

// Now is the monitor's notion of the current time.
func (s *State) Now() time.Time {
	return s.clock.Now()
}

// Stations returns a copy of the registry in seed order.
func (s *State) Stations() []domain.Station {
	return slices.Clone(s.snapshot())
}

// StationsByStatus returns the stations with the given status.
func (s *State) StationsByStatus(status domain.StationStatus) []domain.Station {
	return domain.FilterByStatus(s.snapshot(), status)
}

// Station looks a station up by ID.
func (s *State) Station(id string) (domain.Station, bool) {
	return domain.FindStation(s.snapshot(), id)
}

// SetAddresses fills station addresses, keyed by station ID. Used once at
// startup after reverse geocoding.
func (s *State) SetAddresses(located []domain.Station) {
	for {
		old := s.stations.Load()
		next := slices.Clone(*old)
		for i := range next {
			if st, ok := domain.FindStation(located, next[i].ID); ok && st.Address != "" {
				next[i].Address = st.Address
			}
		}
		if s.stations.CompareAndSwap(old, &next) {
			return
		}
	}
}

// History returns the daily series for a station over the last days days.
// Repeated calls for the same key return the cached series until the next purge.
func (s *State) History(stationID string, days int) []domain.HistoricalRecord {
	return s.history.get(stationID, days, s.clock.Now())
}

// PurgeHistory drops every cached series and returns how many were removed.
func (s *State) PurgeHistory() int {
	n := s.history.purge()
	s.metrics.HistoryPurges.Inc()
	s.logger.Info("history cache purged", "entries", n)
	return n
}

// Alerts returns the alerts matching f, newest first.
func (s *State) Alerts(f domain.AlertFilter) []domain.Alert {
	s.mu.Lock()
	alerts := s.alerts
	s.mu.Unlock()
	return domain.FilterAlerts(alerts, f)
}

// PendingCount is the number of unresolved alerts.
func (s *State) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.PendingCount(s.alerts)
}

// RaiseAlert records an operator-entered alert against a station.
func (s *State) RaiseAlert(ctx context.Context, stationID string, typ domain.AlertType, message string) (domain.Alert, error) {
	st, ok := s.Station(stationID)
	if !ok {
		return domain.Alert{}, fmt.Errorf("%w: %s", domain.ErrUnknownStation, stationID)
	}
	a := domain.NewAlert(st, typ, message, s.clock.Now())
	s.addAlert(ctx, a, "manual")
	return a, nil
}

func (s *State) addAlert(ctx context.Context, a domain.Alert, source string) {
	s.mu.Lock()
	next := make([]domain.Alert, 0, len(s.alerts)+1)
	next = append(next, a)
	next = append(next, s.alerts...)
	s.alerts = next
	pending := domain.PendingCount(next)
	s.mu.Unlock()

	s.metrics.AlertsGenerated.WithLabelValues(string(a.Type), source).Inc()
	s.metrics.AlertsPending.Set(float64(pending))
	s.logger.Info("alert raised",
		"alert_id", a.ID,
		"station_id", a.StationID,
		"type", a.Type,
		"source", source,
	)
	s.publish(ctx, domain.AlertEvent(domain.EventAlertRaised, a, a.Timestamp))
}

// ResolveAlert marks a pending alert resolved. It reports false, and publishes
// nothing, when the alert is unknown or already resolved.
func (s *State) ResolveAlert(ctx context.Context, id string) (domain.Alert, bool) {
	s.mu.Lock()
	next, resolved, ok := domain.ResolveAlert(s.alerts, id)
	if ok {
		s.alerts = next
	}
	pending := domain.PendingCount(s.alerts)
	s.mu.Unlock()

	if !ok {
		return domain.Alert{}, false
	}
	s.metrics.AlertsResolved.Inc()
	s.metrics.AlertsPending.Set(float64(pending))
	s.logger.Info("alert resolved", "alert_id", id, "station_id", resolved.StationID)
	s.publish(ctx, domain.AlertEvent(domain.EventAlertResolved, resolved, s.clock.Now()))
	return resolved, true
}

// Summary reports the dashboard header figures.
func (s *State) Summary() domain.Summary {
	s.mu.Lock()
	alerts := s.alerts
	s.mu.Unlock()
	return domain.Summarize(s.snapshot(), alerts, s.clock.Now())
}

// SimulateTick advances every non-offline station by one random step.
// Must only be called from a single goroutine.
func (s *State) SimulateTick(ctx context.Context) {
	now := s.clock.Now()
	next := domain.Simulate(s.snapshot(), s.simRand, now)
	s.stations.Store(&next)

	s.metrics.SimulationTicks.Inc()
	s.metrics.StationsOnline.Set(float64(domain.OnlineCount(next)))
	s.publish(ctx, domain.StationsEvent(slices.Clone(next), now))
}

// AlertTick rolls for a synthetic alert. Must only be called from a single goroutine.
func (s *State) AlertTick(ctx context.Context) {
	a, ok := domain.RollAlert(s.snapshot(), s.alertRand, s.alertProbability, s.clock.Now())
	if !ok {
		return
	}
	s.addAlert(ctx, a, "generator")
}

// ClockTick announces the current server time to subscribers.
func (s *State) ClockTick(ctx context.Context) {
	s.publish(ctx, domain.ClockEvent(s.clock.Now()))
}

func (s *State) publish(ctx context.Context, ev domain.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event failed", "kind", ev.Kind, "error", err)
	}
}

// Intervals sets how often each periodic task runs.
type Intervals struct {
	Simulation time.Duration
	Alert      time.Duration
	Clock      time.Duration
}

// Tasks returns the periodic tasks that keep the state moving.
func (s *State) Tasks(iv Intervals) []Task {
	return []Task{
		{Name: "simulate", Interval: iv.Simulation, Run: s.SimulateTick},
		{Name: "alerts", Interval: iv.Alert, Run: s.AlertTick},
		{Name: "clock", Interval: iv.Clock, Run: s.ClockTick},
	}
}
