package redrive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"

	"pix-service/internal/config"
	"pix-service/internal/datastore"
	"pix-service/internal/logcontext"
	"pix-service/internal/message"
	"pix-service/internal/model"
)

const (
	defaultParallelism = 16
	defaultMaxAttempts = 5
)

var (
	succeededCounter   = metrics.GetOrCreateCounter(`pix_redrive_total{result="succeeded"}`)
	rescheduledCounter = metrics.GetOrCreateCounter(`pix_redrive_total{result="rescheduled"}`)
	maxAttemptsCounter = metrics.GetOrCreateCounter(`pix_redrive_total{result="max_attempts_reached"}`)
	requeuedCounter    = metrics.GetOrCreateCounter(`pix_redrive_total{result="requeued"}`)
)

// Processor retries sale status writes that failed during reconciliation.
// Each retry waits attempts*retryDelay; a failed retry is published again
// with one more attempt until maxAttempts is reached.
type Processor struct {
	store       datastore.SaleStore
	publisher   message.Publisher
	sem         chan struct{}
	wg          sync.WaitGroup
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

func NewProcessor(store datastore.SaleStore, publisher message.Publisher, cfg config.Redrive, logger *slog.Logger) *Processor {
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Processor{
		store:       store,
		publisher:   publisher,
		sem:         make(chan struct{}, parallelism),
		maxAttempts: maxAttempts,
		retryDelay:  config.Millis(cfg.RetryDelayMs),
		logger:      logger,
	}
}

// Process schedules a retry for retryable failure events and skips the rest.
// It blocks only while all workers are busy.
func (p *Processor) Process(ctx context.Context, event message.PaymentEvent) error {
	if !event.Retryable() {
		return nil
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.requeue(ctx, event)
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()

		p.redrive(ctx, event)
	}()

	return nil
}

// Wait blocks until every scheduled retry has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) redrive(ctx context.Context, event message.PaymentEvent) {
	ctx = logcontext.AppendCtx(ctx,
		slog.String("runId", uuid.New().String()),
		slog.String("paymentId", event.PaymentID.String()),
		slog.String("saleId", event.SaleID),
	)

	delay := time.Duration(event.Attempts) * p.retryDelay
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			p.requeue(ctx, event)
			return
		}
	}

	status := event.SaleStatus
	if status == "" {
		status = model.SaleStatusPaid
	}

	p.logger.InfoContext(ctx, "Redrive attempt", "attempt", event.Attempts+1, "status", status)

	err := p.store.UpdatePaymentStatus(ctx, model.NewSaleID(event.SaleID), status)
	if err == nil {
		succeededCounter.Inc()
		p.logger.InfoContext(ctx, "Reconciliation succeeded on redrive", "attempts", event.Attempts+1)

		reconciled := message.NewPaymentEvent(message.EventPaymentReconciled, event.PaymentID)
		reconciled.SaleID = event.SaleID
		reconciled.PaymentStatus = event.PaymentStatus
		reconciled.SaleStatus = status
		reconciled.Attempts = event.Attempts + 1
		p.publisher.Publish(ctx, reconciled)
		return
	}

	attempts := event.Attempts + 1
	if attempts >= p.maxAttempts {
		maxAttemptsCounter.Inc()
		p.logger.ErrorContext(ctx, "Max attempts reached for sale status update", "attempts", attempts, "error", err)
		return
	}

	rescheduledCounter.Inc()
	p.logger.WarnContext(ctx, "Redrive failed, rescheduling", "attempts", attempts, "error", err)

	retry := message.NewPaymentEvent(message.EventReconciliationFailed, event.PaymentID)
	retry.SaleID = event.SaleID
	retry.PaymentStatus = event.PaymentStatus
	retry.SaleStatus = status
	retry.Reason = message.ReasonDatastoreFailed
	retry.Error = err.Error()
	retry.Attempts = attempts
	p.publisher.Publish(ctx, retry)
}

// requeue puts event back on the topic unchanged; its offset was committed
// when it was read.
func (p *Processor) requeue(ctx context.Context, event message.PaymentEvent) {
	requeuedCounter.Inc()
	p.logger.WarnContext(ctx, "Redrive cancelled before attempt, requeueing", "attempts", event.Attempts)
	p.publisher.Publish(context.WithoutCancel(ctx), event)
}
