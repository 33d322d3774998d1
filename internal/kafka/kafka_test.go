package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pix-service/internal/config"
	"pix-service/internal/message"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
	ctx  context.Context
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctx = ctx
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type fakeReader struct {
	msgs []kafka.Message
	errs []error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func TestEventPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewEventPublisher(writer, slog.Default())

	event := message.NewPaymentEvent(message.EventPaymentReconciled, "1319476421")
	event.SaleID = "42"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	publisher.Publish(ctx, event)

	require.Len(t, writer.msgs, 1)
	assert.Equal(t, "1319476421", string(writer.msgs[0].Key))
	assert.Equal(t, "event", writer.msgs[0].Headers[0].Key)
	assert.Equal(t, string(message.EventPaymentReconciled), string(writer.msgs[0].Headers[0].Value))
	assert.NoError(t, writer.ctx.Err(), "publishing must not inherit request cancellation")

	var decoded message.PaymentEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "42", decoded.SaleID)
}

func TestEventPublisher_SwallowsWriteErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	publisher := NewEventPublisher(writer, slog.Default())

	assert.NotPanics(t, func() {
		publisher.Publish(context.Background(), message.NewPaymentEvent(message.EventChargeCreated, "1"))
	})
}

func TestReadPaymentEvents(t *testing.T) {
	good := message.NewPaymentEvent(message.EventReconciliationFailed, "7")
	value, err := json.Marshal(good)
	require.NoError(t, err)

	reader := &fakeReader{
		errs: []error{errors.New("transient")},
		msgs: []kafka.Message{
			{Value: []byte("not json")},
			{Value: value},
		},
	}

	var got []message.PaymentEvent
	ReadPaymentEvents(context.Background(), reader, slog.Default(), func(_ context.Context, e message.PaymentEvent) error {
		got = append(got, e)
		return nil
	})

	require.Len(t, got, 1)
	assert.Equal(t, good.ID, got[0].ID)
}

func TestNewWriter_Defaults(t *testing.T) {
	w := NewWriter(config.Kafka{Brokers: "a:9092, b:9092", Topic: "events"})

	assert.Equal(t, "events", w.Topic)
	assert.Equal(t, DefaultBatchSize, w.BatchSize)
	assert.Equal(t, "tcp", w.Addr.Network())
}
