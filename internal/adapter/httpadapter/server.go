package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor is the read/write surface of the station monitor used by the API.
type Monitor interface {
	Now() time.Time
	Stations() []domain.Station
	StationsByStatus(status domain.StationStatus) []domain.Station
	Station(id string) (domain.Station, bool)
	History(stationID string, days int) []domain.HistoricalRecord
	Alerts(f domain.AlertFilter) []domain.Alert
	PendingCount() int
	RaiseAlert(ctx context.Context, stationID string, typ domain.AlertType, message string) (domain.Alert, error)
	ResolveAlert(ctx context.Context, id string) (domain.Alert, bool)
	Summary() domain.Summary
}

// Options wires the server to the monitor and its collaborators.
type Options struct {
	Addr    string
	Monitor Monitor
	// Events serves the live event stream. Nil disables /events.
	Events http.Handler
	Ready  sharedobs.ReadinessChecker
	Logger *slog.Logger

	HistoryDefaultDays int
	HistoryMaxDays     int
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	api        *api
}

// NewServer creates an HTTP server with the API, /events, /healthz, /readyz,
// and /metrics routes.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistoryDefaultDays <= 0 {
		opts.HistoryDefaultDays = 30
	}
	if opts.HistoryMaxDays < opts.HistoryDefaultDays {
		opts.HistoryMaxDays = opts.HistoryDefaultDays
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: opts.Logger,
		api: &api{
			monitor:     opts.Monitor,
			logger:      opts.Logger,
			defaultDays: opts.HistoryDefaultDays,
			maxDays:     opts.HistoryMaxDays,
		},
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(opts.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if opts.Events != nil {
		mux.Handle("GET /events", streaming(opts.Events))
	}
	s.api.register(mux)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// streaming lifts the server write timeout for long-lived responses.
func streaming(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		next.ServeHTTP(w, r)
	})
}
