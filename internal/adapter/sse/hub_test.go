package sse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func newTestHub(snapshot func() []domain.Station) (*Hub, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHub(logger, metrics, snapshot), metrics
}

type event struct {
	id   string
	name string
	data string
}

// readEvent reads one event from an event stream, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) event {
	t.Helper()
	var ev event
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" {
				return ev
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			ev.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestHub_AddRemoveClients(t *testing.T) {
	hub, metrics := newTestHub(nil)

	id1, ch1 := hub.AddClient()
	id2, _ := hub.AddClient()
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SSEClients))

	hub.RemoveClient(id1)
	hub.RemoveClient(id1)
	hub.RemoveClient("unknown")

	_, open := <-ch1
	assert.False(t, open, "removed client channel is closed")
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SSEClients))
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, metrics := newTestHub(nil)
	_, ch1 := hub.AddClient()
	_, ch2 := hub.AddClient()

	n := hub.Broadcast(Message{Event: eventClock, Data: ClockPayload{ServerTime: testNow}})

	assert.Equal(t, 2, n)
	m1, m2 := <-ch1, <-ch2
	assert.Equal(t, m1, m2)
	assert.NotZero(t, m1.ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("sse", "success")))
}

func TestHub_BroadcastIDsIncrease(t *testing.T) {
	hub, _ := newTestHub(nil)
	_, ch := hub.AddClient()

	hub.Broadcast(Message{Event: eventClock})
	hub.Broadcast(Message{Event: eventClock})

	first, second := <-ch, <-ch
	assert.Less(t, first.ID, second.ID)
}

func TestHub_SlowClientDropsMessages(t *testing.T) {
	hub, metrics := newTestHub(nil)
	_, ch := hub.AddClient()

	for range clientBuffer + 5 {
		hub.Broadcast(Message{Event: eventClock})
	}

	assert.Len(t, ch, clientBuffer)
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("sse", "dropped")))
}

func TestHub_PublishMapsEvents(t *testing.T) {
	hub, _ := newTestHub(nil)
	_, ch := hub.AddClient()
	stations := domain.SeedStations(testNow)
	alert := domain.SeedAlerts(testNow)[0]

	require.NoError(t, hub.Publish(context.Background(), domain.StationsEvent(stations, testNow)))
	require.NoError(t, hub.Publish(context.Background(), domain.AlertEvent(domain.EventAlertResolved, alert, testNow)))
	require.NoError(t, hub.Publish(context.Background(), domain.ClockEvent(testNow)))

	msg := <-ch
	assert.Equal(t, eventStations, msg.Event)
	assert.Equal(t, stations, msg.Data)

	msg = <-ch
	assert.Equal(t, eventAlert, msg.Event)
	assert.Equal(t, AlertPayload{Kind: domain.EventAlertResolved, Alert: alert}, msg.Data)

	msg = <-ch
	assert.Equal(t, eventClock, msg.Event)
	assert.Equal(t, ClockPayload{ServerTime: testNow}, msg.Data)
}

func TestHub_PublishUnknownKind(t *testing.T) {
	hub, _ := newTestHub(nil)
	err := hub.Publish(context.Background(), domain.Event{Kind: "bogus"})
	assert.Error(t, err)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub, _ := newTestHub(nil)
	_, ch := hub.AddClient()

	hub.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.ClientCount())

	_, late := hub.AddClient()
	_, open = <-late
	assert.False(t, open, "clients added after close are closed immediately")
}

func TestHub_ServeHTTPStreamsEvents(t *testing.T) {
	stations := domain.SeedStations(testNow)
	hub, _ := newTestHub(func() []domain.Station { return stations })
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	r := bufio.NewReader(resp.Body)

	hello := readEvent(t, r)
	assert.Equal(t, eventConnected, hello.name)
	assert.Contains(t, hello.data, "clientId")

	initial := readEvent(t, r)
	assert.Equal(t, eventStations, initial.name)
	var got []domain.Station
	require.NoError(t, json.Unmarshal([]byte(initial.data), &got))
	assert.Len(t, got, 5)

	require.Equal(t, 1, hub.ClientCount())
	alert := domain.SeedAlerts(testNow)[1]
	require.NoError(t, hub.Publish(ctx, domain.AlertEvent(domain.EventAlertRaised, alert, testNow)))

	ev := readEvent(t, r)
	assert.Equal(t, eventAlert, ev.name)
	var payload AlertPayload
	require.NoError(t, json.NewDecoder(bytes.NewReader([]byte(ev.data))).Decode(&payload))
	assert.Equal(t, domain.EventAlertRaised, payload.Kind)
	assert.Equal(t, alert.ID, payload.Alert.ID)

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_ServeHTTPKeepalive(t *testing.T) {
	hub, _ := newTestHub(nil)
	hub.keepalive = 10 * time.Millisecond
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	readEvent(t, r)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": keepalive\n", line)
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, Message{ID: 7, Event: eventClock}))
	assert.Equal(t, "id: 7\nevent: clock\ndata: {}\n\n", buf.String())
}
