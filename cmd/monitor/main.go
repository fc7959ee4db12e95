package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/station-monitor/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/station-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/station-monitor/internal/adapter/mapbox"
	"github.com/couchcryptid/station-monitor/internal/adapter/sse"
	"github.com/couchcryptid/station-monitor/internal/config"
	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/monitor"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var state *monitor.State
	hub := sse.NewHub(logger, metrics, func() []domain.Station { return state.Stations() })
	publishers := monitor.FanOut{hub}

	// Alert forwarding is feature-flagged via KAFKA_ENABLED.
	var alerts *kafkaadapter.AlertPublisher
	if cfg.KafkaEnabled {
		alerts = kafkaadapter.NewAlertPublisher(cfg, logger, metrics)
		publishers = append(publishers, alerts)
		logger.Info("kafka alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka alert publishing disabled")
	}

	seed := cfg.Seed(clock.Now())
	state = monitor.NewState(monitor.Options{
		Clock:            clock,
		Logger:           logger,
		Metrics:          metrics,
		Publisher:        publishers,
		Seed:             seed,
		AlertProbability: cfg.AlertProbability,
		HistoryCacheSize: cfg.HistoryCacheSize,
	})
	logger.Info("station registry loaded", "stations", len(state.Stations()), "seed", seed)

	// Reverse geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		metrics.GeocodeEnabled.Set(1)
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		go func() {
			located := domain.LocateStations(ctx, state.Stations(), client, logger)
			state.SetAddresses(located)
			logger.Info("station addresses resolved")
		}()
		logger.Info("mapbox geocoding enabled", "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	scheduler := monitor.NewScheduler(clock, logger, metrics, state.Tasks(monitor.Intervals{
		Simulation: cfg.SimulationInterval,
		Alert:      cfg.AlertInterval,
		Clock:      cfg.ClockInterval,
	})...)

	purger := cron.New(cron.WithLocation(time.UTC))
	if _, err := monitor.SchedulePurge(purger, cfg.HistoryPurgeSchedule, state); err != nil {
		logger.Error("failed to schedule history purge", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:               cfg.HTTPAddr,
		Monitor:            state,
		Events:             hub,
		Ready:              scheduler,
		Logger:             logger,
		HistoryDefaultDays: cfg.HistoryDefaultDays,
		HistoryMaxDays:     cfg.HistoryMaxDays,
	})

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start alert delivery.
	publisherDone := make(chan struct{})
	if alerts != nil {
		go func() {
			defer close(publisherDone)
			if err := alerts.Run(ctx); err != nil {
				logger.Error("alert publisher error", "error", err)
			}
		}()
	} else {
		close(publisherDone)
	}

	purger.Start()
	scheduler.Start(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()
	<-purger.Stop().Done()

	// Streaming clients never finish on their own.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-publisherDone:
	case <-shutdownCtx.Done():
		logger.Warn("alert publisher did not drain before shutdown timeout")
	}
	if alerts != nil {
		if err := alerts.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
