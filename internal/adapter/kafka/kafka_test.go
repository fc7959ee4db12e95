package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	written  []kafkago.Message
	calls    int
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) messages() []kafkago.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafkago.Message(nil), f.written...)
}

func newTestPublisher(w messageWriter, size int) (*AlertPublisher, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newAlertPublisher(w, logger, metrics, size), metrics
}

func testAlert() domain.Alert {
	return domain.SeedAlerts(testNow)[0]
}

func TestSerializeToMessage(t *testing.T) {
	alert := testAlert()

	msg, err := serializeToMessage(alert, domain.EventAlertRaised, testNow)
	require.NoError(t, err)

	assert.Equal(t, []byte(alert.ID), msg.Key)
	var decoded domain.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, alert.ID, decoded.ID)
	assert.Equal(t, alert.StationID, decoded.StationID)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("alert.raised"), msg.Headers[0].Value)
	assert.Equal(t, "alert_type", msg.Headers[1].Key)
	assert.Equal(t, []byte(alert.Type), msg.Headers[1].Value)
	assert.Equal(t, "published_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2024-01-15T09:30:00Z"), msg.Headers[2].Value)
}

func TestPublish_IgnoresNonAlertEvents(t *testing.T) {
	p, _ := newTestPublisher(&fakeWriter{}, 4)

	require.NoError(t, p.Publish(context.Background(), domain.ClockEvent(testNow)))
	require.NoError(t, p.Publish(context.Background(), domain.StationsEvent(domain.SeedStations(testNow), testNow)))
	require.NoError(t, p.Publish(context.Background(), domain.Event{Kind: domain.EventAlertRaised}))

	assert.Empty(t, p.queue)
}

func TestPublish_QueueFull(t *testing.T) {
	p, metrics := newTestPublisher(&fakeWriter{}, 1)
	ev := domain.AlertEvent(domain.EventAlertRaised, testAlert(), testNow)

	require.NoError(t, p.Publish(context.Background(), ev))
	err := p.Publish(context.Background(), ev)

	require.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("kafka", "dropped")))
}

func TestRun_DeliversQueuedAlerts(t *testing.T) {
	w := &fakeWriter{}
	p, metrics := newTestPublisher(w, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	alerts := domain.SeedAlerts(testNow)
	for _, a := range alerts {
		require.NoError(t, p.Publish(ctx, domain.AlertEvent(domain.EventAlertRaised, a, testNow)))
	}

	require.Eventually(t, func() bool { return len(w.messages()) == len(alerts) }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for i, msg := range w.messages() {
		assert.Equal(t, alerts[i].ID, string(msg.Key))
	}
	assert.Equal(t, float64(len(alerts)), testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("kafka", "success")))
}

func TestRun_RetriesFailedWrites(t *testing.T) {
	w := &fakeWriter{failures: 1}
	p, metrics := newTestPublisher(w, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	require.NoError(t, p.Publish(ctx, domain.AlertEvent(domain.EventAlertResolved, testAlert(), testNow)))

	require.Eventually(t, func() bool { return len(w.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("kafka", "success")))
	assert.Zero(t, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("kafka", "error")))
}

func TestRun_FlushesOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	p, metrics := newTestPublisher(w, 8)
	ev := domain.AlertEvent(domain.EventAlertRaised, testAlert(), testNow)
	require.NoError(t, p.Publish(context.Background(), ev))
	require.NoError(t, p.Publish(context.Background(), ev))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))

	assert.Len(t, w.messages(), 2)
	assert.Empty(t, p.queue)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("kafka", "success")))
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p, _ := newTestPublisher(w, 1)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
