package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/VictoriaMetrics/metrics"
	"github.com/segmentio/kafka-go"

	"pix-service/internal/config"
	"pix-service/internal/message"
)

type Metrics struct {
	ReadErrorCounter      *metrics.Counter
	UnmarshalErrorCounter *metrics.Counter
	ProcessErrorCounter   *metrics.Counter
	SuccessCounter        *metrics.Counter
}

var paymentEventMetrics = Metrics{
	ReadErrorCounter:      metrics.GetOrCreateCounter(`kafka_reader_total{result="read_error",type="payment_event"}`),
	UnmarshalErrorCounter: metrics.GetOrCreateCounter(`kafka_reader_total{result="unmarshal_error",type="payment_event"}`),
	ProcessErrorCounter:   metrics.GetOrCreateCounter(`kafka_reader_total{result="process_error",type="payment_event"}`),
	SuccessCounter:        metrics.GetOrCreateCounter(`kafka_reader_total{result="success",type="payment_event"}`),
}

// MessageReader is the part of *kafka.Reader the consumer loop needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

func NewReader(cfg config.Kafka) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers(cfg.Brokers),
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
	})
}

// ReadPaymentEvents feeds every event on the topic to process until ctx is
// done or the reader is closed.
func ReadPaymentEvents(ctx context.Context, reader MessageReader, logger *slog.Logger, process func(context.Context, message.PaymentEvent) error) {
	readMessages(ctx, reader, logger, func(ctx context.Context, value []byte) error {
		var e message.PaymentEvent
		if err := json.Unmarshal(value, &e); err != nil {
			logger.ErrorContext(ctx, "Error unmarshalling message", "error", err)
			paymentEventMetrics.UnmarshalErrorCounter.Inc()
			return nil
		}
		return process(ctx, e)
	}, paymentEventMetrics)
}

func readMessages(ctx context.Context, reader MessageReader, logger *slog.Logger, process func(context.Context, []byte) error, kafkaMetrics Metrics) {
	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				logger.InfoContext(ctx, "Stopping Kafka reader", "reason", err)
				return
			}
			logger.ErrorContext(ctx, "Error reading message", "error", err)
			kafkaMetrics.ReadErrorCounter.Inc()
			continue
		}
		logger.DebugContext(ctx, "Received message", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset)

		if err := process(ctx, m.Value); err != nil {
			logger.ErrorContext(ctx, "Error processing message", "error", err)
			kafkaMetrics.ProcessErrorCounter.Inc()
			continue
		}
		kafkaMetrics.SuccessCounter.Inc()
	}
}
