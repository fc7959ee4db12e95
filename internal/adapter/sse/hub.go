// Package sse streams monitor events to dashboard clients as server-sent events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/google/uuid"
)

const (
	clientBuffer     = 64
	defaultKeepalive = 30 * time.Second
	eventConnected   = "connected"
	eventStations    = "stations"
	eventAlert       = "alert"
	eventClock       = "clock"
)

// Message is one server-sent event.
type Message struct {
	ID    uint64
	Event string
	Data  any
}

// AlertPayload is the data of an alert event.
type AlertPayload struct {
	Kind  domain.EventKind `json:"kind"`
	Alert domain.Alert     `json:"alert"`
}

// ClockPayload is the data of a clock event.
type ClockPayload struct {
	ServerTime time.Time `json:"serverTime"`
}

// Hub fans messages out to connected clients. Slow clients miss messages
// rather than stall the broadcaster.
type Hub struct {
	logger    *slog.Logger
	metrics   *observability.Metrics
	snapshot  func() []domain.Station
	keepalive time.Duration

	seq     atomic.Uint64
	mu      sync.RWMutex
	clients map[string]chan Message
	closed  bool
}

// NewHub creates a Hub. snapshot, when non-nil, supplies the station list sent
// to each client right after it connects.
func NewHub(logger *slog.Logger, metrics *observability.Metrics, snapshot func() []domain.Station) *Hub {
	return &Hub{
		logger:    logger,
		metrics:   metrics,
		snapshot:  snapshot,
		keepalive: defaultKeepalive,
		clients:   make(map[string]chan Message),
	}
}

// AddClient registers a new client and returns its ID and message channel.
// The channel is closed when the client is removed or the hub closes.
func (h *Hub) AddClient() (string, <-chan Message) {
	id := uuid.NewString()
	ch := make(chan Message, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.clients[id] = ch
	h.metrics.SSEClients.Set(float64(len(h.clients)))
	h.logger.Debug("sse client connected", "client_id", id, "clients", len(h.clients))
	return id, ch
}

// RemoveClient unregisters a client. Unknown IDs are ignored.
func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	close(ch)
	delete(h.clients, id)
	h.metrics.SSEClients.Set(float64(len(h.clients)))
	h.logger.Debug("sse client disconnected", "client_id", id, "clients", len(h.clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client and returns how many received it.
func (h *Hub) Broadcast(msg Message) int {
	if msg.ID == 0 {
		msg.ID = h.seq.Add(1)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, ch := range h.clients {
		select {
		case ch <- msg:
			delivered++
		default:
			h.metrics.EventsPublished.WithLabelValues("sse", "dropped").Inc()
			h.logger.Warn("sse client buffer full, dropping message", "client_id", id, "event", msg.Event)
		}
	}
	if delivered > 0 {
		h.metrics.EventsPublished.WithLabelValues("sse", "success").Add(float64(delivered))
	}
	return delivered
}

// Publish maps a monitor event to a server-sent event and broadcasts it.
func (h *Hub) Publish(_ context.Context, ev domain.Event) error {
	msg, err := toMessage(ev)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

func toMessage(ev domain.Event) (Message, error) {
	switch {
	case ev.Kind == domain.EventStations:
		return Message{Event: eventStations, Data: ev.Stations}, nil
	case ev.Kind.IsAlert() && ev.Alert != nil:
		return Message{Event: eventAlert, Data: AlertPayload{Kind: ev.Kind, Alert: *ev.Alert}}, nil
	case ev.Kind == domain.EventClock:
		return Message{Event: eventClock, Data: ClockPayload{ServerTime: ev.Time}}, nil
	}
	return Message{}, fmt.Errorf("sse: unsupported event kind %q", ev.Kind)
}

// Close disconnects every client. Later clients are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.closed = true
	h.metrics.SSEClients.Set(0)
}

// ServeHTTP streams events to one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, messages := h.AddClient()
	defer h.RemoveClient(id)

	hello := []Message{{ID: h.seq.Add(1), Event: eventConnected, Data: map[string]string{"clientId": id}}}
	if h.snapshot != nil {
		hello = append(hello, Message{ID: h.seq.Add(1), Event: eventStations, Data: h.snapshot()})
	}
	for _, msg := range hello {
		if err := writeMessage(w, msg); err != nil {
			h.logger.Warn("sse write failed", "client_id", id, "error", err)
			return
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := writeMessage(w, msg); err != nil {
				h.logger.Warn("sse write failed", "client_id", id, "error", err)
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeMessage encodes msg in the text/event-stream format.
func writeMessage(w io.Writer, msg Message) error {
	data := []byte("{}")
	if msg.Data != nil {
		var err error
		if data, err = json.Marshal(msg.Data); err != nil {
			return fmt.Errorf("marshal %s event: %w", msg.Event, err)
		}
	}
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", msg.ID, msg.Event, data)
	return err
}
