package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"accord/internal/platform/metrics"
)

// DeadLetterSuffix is appended to a topic name to form its dead-letter
// destination.
const DeadLetterSuffix = ".dlq"

// Message is one delivered record. Delivery is at-least-once: the same
// logical occurrence may arrive more than once, and handlers must be
// idempotent with respect to repeats.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	// Attempt counts in-process delivery attempts for this record, starting
	// at 1. Redeliveries after a crash restart the count.
	Attempt int
}

// Handler processes one message. Returning nil acknowledges the message.
// Returning an error signals a retryable failure: the consumer retries with
// backoff and dead-letters on exhaustion. Wrap the error with Fatal to skip
// retries and dead-letter immediately (malformed payloads cannot be fixed by
// redelivery).
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks an error as non-retryable. The consumer routes the message to
// the dead-letter topic without further attempts.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err carries the non-retryable marker.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Config holds the consumer group settings.
type Config struct {
	Brokers []string
	Group   string
	// MaxAttempts bounds in-process attempts per message before the record
	// is dead-lettered. Minimum 1.
	MaxAttempts int
	// RetryBackoff is the base delay between attempts; attempt n waits
	// n * RetryBackoff.
	RetryBackoff time.Duration
}

// Consumer runs a Kafka consumer group loop and dispatches records to
// per-topic handlers. Offsets are committed only after a record is resolved
// (acknowledged or dead-lettered), so a crash mid-handling redelivers.
type Consumer struct {
	client   *kgo.Client
	handlers map[string]Handler
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	cfg      Config
}

// New builds a consumer for the given topics. Handlers must be registered
// before Run.
func New(cfg Config, topics []string, logger *slog.Logger, m *metrics.Metrics) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if cfg.Group == "" {
		return nil, errors.New("consumer group is required")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Consumer{
		client:   client,
		handlers: make(map[string]Handler),
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("accord/kafka"),
		cfg:      cfg,
	}, nil
}

// Register adds a handler for a topic. Not safe to call after Run starts.
func (c *Consumer) Register(topic string, handler Handler) {
	c.handlers[topic] = handler
}

// Run polls until ctx is cancelled. Records in a fetch are processed in
// order; offsets for resolved records are committed even when a later record
// aborts the batch, so nothing resolved is redelivered and nothing
// unresolved is lost.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var resolved []*kgo.Record
		var loopErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if loopErr != nil {
				return
			}
			if err := c.process(ctx, record); err != nil {
				loopErr = err
				return
			}
			resolved = append(resolved, record)
		})

		if len(resolved) > 0 {
			if err := c.client.CommitRecords(context.WithoutCancel(ctx), resolved...); err != nil {
				c.logger.ErrorContext(ctx, "commit offsets", "error", err)
			}
		}
		if loopErr != nil {
			return loopErr
		}
	}
}

// process resolves one record: acknowledged, or dead-lettered. The only
// error returns are context cancellation and a failed dead-letter publish;
// both leave the offset uncommitted so the broker redelivers.
func (c *Consumer) process(ctx context.Context, record *kgo.Record) error {
	handler, ok := c.handlers[record.Topic]
	if !ok {
		c.logger.WarnContext(ctx, "no handler for topic, skipping message",
			"topic", record.Topic,
			"key", string(record.Key),
		)
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", record.Topic),
		),
	)
	defer span.End()

	msg := &Message{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Key:       record.Key,
		Value:     record.Value,
		Timestamp: record.Timestamp,
	}

	for attempt := 1; ; attempt++ {
		msg.Attempt = attempt

		start := time.Now()
		err := handler.Handle(ctx, msg)
		c.metrics.HandleDuration.WithLabelValues(record.Topic).
			Observe(float64(time.Since(start).Microseconds()) / 1000.0)

		if err == nil {
			c.metrics.EventsConsumed.WithLabelValues(record.Topic, "ok").Inc()
			return nil
		}
		span.RecordError(err)

		if IsFatal(err) {
			c.logger.ErrorContext(ctx, "non-retryable failure, dead-lettering",
				"topic", record.Topic,
				"key", string(record.Key),
				"error", err,
			)
			return c.deadLetter(ctx, record, err)
		}

		if attempt >= c.cfg.MaxAttempts {
			c.logger.ErrorContext(ctx, "retries exhausted, dead-lettering",
				"topic", record.Topic,
				"key", string(record.Key),
				"attempts", attempt,
				"error", err,
			)
			return c.deadLetter(ctx, record, err)
		}

		c.metrics.EventRetries.WithLabelValues(record.Topic).Inc()
		c.metrics.EventsConsumed.WithLabelValues(record.Topic, "retry").Inc()
		c.logger.WarnContext(ctx, "handler failed, retrying",
			"topic", record.Topic,
			"key", string(record.Key),
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.cfg.RetryBackoff):
		}
	}
}

// deadLetter republishes the record to its dead-letter topic for operator
// inspection and replay. A failed dead-letter publish propagates so the
// offset stays uncommitted; swallowing it would lose the message entirely.
func (c *Consumer) deadLetter(ctx context.Context, record *kgo.Record, cause error) error {
	dlq := &kgo.Record{
		Topic: record.Topic + DeadLetterSuffix,
		Key:   record.Key,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: "origin-topic", Value: []byte(record.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	}
	if err := c.client.ProduceSync(ctx, dlq).FirstErr(); err != nil {
		return fmt.Errorf("dead-letter %s: %w", record.Topic, err)
	}
	c.metrics.EventsDeadLetter.WithLabelValues(record.Topic).Inc()
	c.metrics.EventsConsumed.WithLabelValues(record.Topic, "dead_letter").Inc()
	return nil
}
