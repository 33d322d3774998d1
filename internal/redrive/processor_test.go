package redrive

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pix-service/internal/config"
	"pix-service/internal/message"
	"pix-service/internal/model"
)

type fakeStore struct {
	mu     sync.Mutex
	calls  []string
	status []model.SaleStatus
	err    error
}

func (s *fakeStore) UpdatePaymentStatus(_ context.Context, saleID model.SaleID, status model.SaleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, saleID.String())
	s.status = append(s.status, status)
	return s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []message.PaymentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...message.PaymentEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func failedEvent(attempts int) message.PaymentEvent {
	e := message.NewPaymentEvent(message.EventReconciliationFailed, "1001")
	e.SaleID = "42"
	e.SaleStatus = model.SaleStatusPaid
	e.PaymentStatus = model.PaymentStatusApproved
	e.Reason = message.ReasonDatastoreFailed
	e.Attempts = attempts
	return e
}

func newProcessor(store *fakeStore, publisher *recordingPublisher) *Processor {
	return NewProcessor(store, publisher, config.Redrive{Parallelism: 2, MaxAttempts: 3}, slog.Default())
}

func TestProcessor_Success(t *testing.T) {
	store := &fakeStore{}
	publisher := &recordingPublisher{}
	sut := newProcessor(store, publisher)

	require.NoError(t, sut.Process(context.Background(), failedEvent(1)))
	sut.Wait()

	assert.Equal(t, []string{"42"}, store.calls)
	assert.Equal(t, []model.SaleStatus{model.SaleStatusPaid}, store.status)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, message.EventPaymentReconciled, publisher.events[0].Event)
	assert.Equal(t, 2, publisher.events[0].Attempts)
}

func TestProcessor_FailureIsRescheduled(t *testing.T) {
	store := &fakeStore{err: errors.New("503")}
	publisher := &recordingPublisher{}
	sut := newProcessor(store, publisher)

	require.NoError(t, sut.Process(context.Background(), failedEvent(1)))
	sut.Wait()

	require.Len(t, publisher.events, 1)
	retry := publisher.events[0]
	assert.Equal(t, message.EventReconciliationFailed, retry.Event)
	assert.Equal(t, 2, retry.Attempts)
	assert.Equal(t, "42", retry.SaleID)
	assert.True(t, retry.Retryable())
}

func TestProcessor_StopsAtMaxAttempts(t *testing.T) {
	store := &fakeStore{err: errors.New("503")}
	publisher := &recordingPublisher{}
	sut := newProcessor(store, publisher)

	require.NoError(t, sut.Process(context.Background(), failedEvent(2)))
	sut.Wait()

	assert.Len(t, store.calls, 1)
	assert.Empty(t, publisher.events)
}

func TestProcessor_SkipsNonRetryableEvents(t *testing.T) {
	store := &fakeStore{}
	publisher := &recordingPublisher{}
	sut := newProcessor(store, publisher)

	reconciled := message.NewPaymentEvent(message.EventPaymentReconciled, "1001")
	reconciled.SaleID = "42"
	badReference := failedEvent(1)
	badReference.Reason = message.ReasonSaleReferenceBad
	badReference.SaleID = ""

	for _, e := range []message.PaymentEvent{reconciled, badReference, message.NewPaymentEvent(message.EventChargeCreated, "1")} {
		require.NoError(t, sut.Process(context.Background(), e))
	}
	sut.Wait()

	assert.Empty(t, store.calls)
	assert.Empty(t, publisher.events)
}

func TestProcessor_CancelledBeforeDelayElapses(t *testing.T) {
	store := &fakeStore{}
	publisher := &recordingPublisher{}
	sut := NewProcessor(store, publisher, config.Redrive{Parallelism: 1, MaxAttempts: 3, RetryDelayMs: 60_000}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sut.Process(ctx, failedEvent(1)))
	cancel()
	sut.Wait()

	assert.Empty(t, store.calls)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, failedEvent(1).Event, publisher.events[0].Event)
	assert.Equal(t, 1, publisher.events[0].Attempts)
	assert.Equal(t, "42", publisher.events[0].SaleID)
	assert.True(t, publisher.events[0].Retryable())
}

func TestProcessor_RequeuesWhenCancelledWhileWorkersBusy(t *testing.T) {
	store := &fakeStore{}
	publisher := &recordingPublisher{}
	sut := NewProcessor(store, publisher, config.Redrive{Parallelism: 1, MaxAttempts: 3, RetryDelayMs: 60_000}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sut.Process(ctx, failedEvent(1)))

	queued := failedEvent(2)
	queued.PaymentID = "1002"
	cancel()
	_ = sut.Process(ctx, queued)
	sut.Wait()

	assert.Empty(t, store.calls)
	require.Len(t, publisher.events, 2)
	var ids []model.PaymentID
	for _, e := range publisher.events {
		ids = append(ids, e.PaymentID)
	}
	assert.ElementsMatch(t, []model.PaymentID{"1001", "1002"}, ids)
}
