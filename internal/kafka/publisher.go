package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/segmentio/kafka-go"

	"pix-service/internal/message"
)

const defaultPublishTimeout = 2 * time.Second

var (
	publishedCounter     = metrics.GetOrCreateCounter(`pix_events_publish_total{result="published"}`)
	publishFailedCounter = metrics.GetOrCreateCounter(`pix_events_publish_total{result="failed"}`)
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// EventPublisher writes payment events keyed by payment id so that events
// for one payment stay ordered within a partition.
type EventPublisher struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *slog.Logger
}

func NewEventPublisher(writer MessageWriter, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{writer: writer, timeout: defaultPublishTimeout, logger: logger}
}

// Publish never fails the caller: publishing is detached from the request's
// cancellation and errors are logged and counted.
func (p *EventPublisher) Publish(ctx context.Context, events ...message.PaymentEvent) {
	if len(events) == 0 {
		return
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			p.logger.ErrorContext(ctx, "Error marshalling payment event", "event", e.Event, "error", err)
			publishFailedCounter.Inc()
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.PaymentID.String()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event", Value: []byte(e.Event)},
			},
		})
	}

	if len(msgs) == 0 {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msgs...); err != nil {
		p.logger.ErrorContext(ctx, "Error writing payment events to Kafka", "count", len(msgs), "error", err)
		publishFailedCounter.Add(len(msgs))
		return
	}

	publishedCounter.Add(len(msgs))
}
