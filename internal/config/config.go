package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scheduler intervals.
	SimulationInterval time.Duration
	AlertInterval      time.Duration
	ClockInterval      time.Duration

	AlertProbability float64
	// RandomSeed seeds the simulator and alert roller. Zero means time based.
	RandomSeed uint64

	HistoryCacheSize     int
	HistoryDefaultDays   int
	HistoryMaxDays       int
	HistoryPurgeSchedule string

	// Kafka alert publishing.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Mapbox address lookup.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. Values from an optional .env file (or ENV_FILE) fill in variables that
// are not already set.
func Load() (*Config, error) {
	if err := loadEnvFile(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	simInterval, err := parsePositiveDuration("SIMULATION_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	alertInterval, err := parsePositiveDuration("ALERT_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	clockInterval, err := parsePositiveDuration("CLOCK_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	probability, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("ALERT_PROBABILITY", "0.2"), 64)
	if err != nil || probability < 0 || probability > 1 {
		return nil, errors.New("invalid ALERT_PROBABILITY: must be between 0 and 1")
	}
	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("RANDOM_SEED", "0"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid RANDOM_SEED: must be a non-negative integer")
	}

	cacheSize, err := parsePositiveInt("HISTORY_CACHE_SIZE", "256")
	if err != nil {
		return nil, err
	}
	defaultDays, err := parsePositiveInt("HISTORY_DEFAULT_DAYS", "30")
	if err != nil {
		return nil, err
	}
	maxDays, err := parsePositiveInt("HISTORY_MAX_DAYS", "365")
	if err != nil {
		return nil, err
	}

	purgeSchedule := sharedcfg.EnvOrDefault("HISTORY_PURGE_SCHEDULE", "0 0 * * *")
	if _, err := cron.ParseStandard(purgeSchedule); err != nil {
		return nil, fmt.Errorf("invalid HISTORY_PURGE_SCHEDULE: %w", err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SimulationInterval: simInterval,
		AlertInterval:      alertInterval,
		ClockInterval:      clockInterval,
		AlertProbability:   probability,
		RandomSeed:         seed,

		HistoryCacheSize:     cacheSize,
		HistoryDefaultDays:   defaultDays,
		HistoryMaxDays:       maxDays,
		HistoryPurgeSchedule: purgeSchedule,

		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "station-alerts"),

		MapboxToken:   mapboxToken,
		MapboxEnabled: mapboxEnabled,
		MapboxTimeout: mapboxTimeout,
	}

	if cfg.HistoryDefaultDays > cfg.HistoryMaxDays {
		return nil, errors.New("HISTORY_DEFAULT_DAYS must not exceed HISTORY_MAX_DAYS")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// Seed returns the configured random seed, or a time-derived one when unset.
func (c *Config) Seed(now time.Time) uint64 {
	if c.RandomSeed != 0 {
		return c.RandomSeed
	}
	return uint64(now.UnixNano())
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
