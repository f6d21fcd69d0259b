package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	reservation "github.com/dmehra2102/market-preorders/internal/reservation/domain"
	"github.com/dmehra2102/market-preorders/pkg/outbox"
	"github.com/dmehra2102/market-preorders/pkg/tracing"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Consumer drops cached search results whenever a reservation changes stock.
type Consumer struct {
	log    *slog.Logger
	reader Reader
	cache  Invalidator
	idem   Deduper
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, cache Invalidator, idem Deduper) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		cache:  cache,
		idem:   idem,
		tracer: otel.Tracer("catalog-cache-consumer"),
	}
}

// Run consumes until ctx is cancelled. A message whose invalidation failed is left
// uncommitted.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.handle(ctx, msg); err != nil {
			c.log.Error("cache invalidation failed", "err", err, "offset", msg.Offset)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error("commit failed", "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	eventType := tracing.HeaderValue(msg.Headers, outbox.HeaderEventType)
	if eventType != reservation.EventPreorderPlaced && eventType != reservation.EventOrderCancelled {
		return nil
	}

	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Warn("idempotency check failed", "err", err)
	} else if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return nil
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType, trace.WithAttributes(
		attribute.String("order_id", string(msg.Key)),
	))
	defer span.End()

	if err := c.cache.Invalidate(msgCtx); err != nil {
		span.RecordError(err)
		return err
	}
	c.log.Info("search cache invalidated", "event_type", eventType, "order_id", string(msg.Key))
	return nil
}
