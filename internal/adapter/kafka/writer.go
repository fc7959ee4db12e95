package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/station-monitor/internal/config"
	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	queueSize      = 256
	maxAttempts    = 5
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	flushTimeout   = 5 * time.Second
)

// ErrQueueFull is returned by Publish when the delivery queue is saturated.
var ErrQueueFull = errors.New("kafka alert queue full")

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// AlertPublisher forwards alert transitions to a Kafka topic. Publish only
// enqueues; Run owns delivery so broker latency never reaches the caller.
type AlertPublisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	queue   chan kafkago.Message
}

// NewAlertPublisher creates a producer for the configured alert topic.
func NewAlertPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *AlertPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newAlertPublisher(w, logger, metrics, queueSize)
}

func newAlertPublisher(w messageWriter, logger *slog.Logger, metrics *observability.Metrics, size int) *AlertPublisher {
	return &AlertPublisher{
		writer:  w,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan kafkago.Message, size),
	}
}

// Publish enqueues alert events for delivery. Other event kinds are ignored.
func (p *AlertPublisher) Publish(_ context.Context, ev domain.Event) error {
	if !ev.Kind.IsAlert() || ev.Alert == nil {
		return nil
	}
	msg, err := serializeToMessage(*ev.Alert, ev.Kind, ev.Time)
	if err != nil {
		return err
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		p.metrics.EventsPublished.WithLabelValues("kafka", "dropped").Inc()
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is cancelled, then makes one
// bounded attempt to flush whatever is still queued.
func (p *AlertPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		}
	}
}

// deliver writes one message, retrying with exponential backoff.
func (p *AlertPublisher) deliver(ctx context.Context, msg kafkago.Message) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			p.requeue(msg)
			return
		}
		err := p.writer.WriteMessages(ctx, msg)
		if err == nil {
			p.metrics.EventsPublished.WithLabelValues("kafka", "success").Inc()
			return
		}
		if ctx.Err() != nil {
			p.requeue(msg)
			return
		}
		p.logger.Warn("publish alert failed",
			"alert_id", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)
		if attempt == maxAttempts || !retry.SleepWithContext(ctx, backoff) {
			p.metrics.EventsPublished.WithLabelValues("kafka", "error").Inc()
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// requeue keeps a message for the shutdown flush.
func (p *AlertPublisher) requeue(msg kafkago.Message) {
	select {
	case p.queue <- msg:
	default:
		p.metrics.EventsPublished.WithLabelValues("kafka", "dropped").Inc()
	}
}

func (p *AlertPublisher) flush() {
	var pending []kafkago.Message
drain:
	for {
		select {
		case msg := <-p.queue:
			pending = append(pending, msg)
		default:
			break drain
		}
	}
	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, pending...); err != nil {
		p.metrics.EventsPublished.WithLabelValues("kafka", "error").Add(float64(len(pending)))
		p.logger.Error("flush alerts on shutdown failed", "pending", len(pending), "error", err)
		return
	}
	p.metrics.EventsPublished.WithLabelValues("kafka", "success").Add(float64(len(pending)))
}

func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an alert transition into a Kafka message keyed
// by alert ID, so every transition of one alert lands on the same partition.
func serializeToMessage(a domain.Alert, kind domain.EventKind, at time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(kind)},
			{Key: "alert_type", Value: []byte(a.Type)},
			{Key: "published_at", Value: []byte(at.UTC().Format(time.RFC3339))},
		},
	}, nil
}
