package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/VictoriaMetrics/metrics"

	"pix-service/internal/apperror"
	"pix-service/internal/config"
	"pix-service/internal/datastore"
	"pix-service/internal/logcontext"
	"pix-service/internal/message"
	"pix-service/internal/model"
	"pix-service/internal/payload"
)

const notificationKindPayment = "payment"

var (
	reconciledCounter      = metrics.GetOrCreateCounter(`pix_webhook_total{result="reconciled"}`)
	ignoredCounter         = metrics.GetOrCreateCounter(`pix_webhook_total{result="ignored"}`)
	badRequestCounter      = metrics.GetOrCreateCounter(`pix_webhook_total{result="bad_request"}`)
	unauthorizedCounter    = metrics.GetOrCreateCounter(`pix_webhook_total{result="unauthorized"}`)
	fetchFailedCounter     = metrics.GetOrCreateCounter(`pix_webhook_total{result="fetch_failed"}`)
	referenceFailedCounter = metrics.GetOrCreateCounter(`pix_webhook_total{result="reference_failed"}`)
	datastoreFailedCounter = metrics.GetOrCreateCounter(`pix_webhook_total{result="datastore_failed"}`)
)

type Outcome string

const (
	OutcomeReconciled Outcome = "reconciled"
	OutcomeIgnored    Outcome = "ignored"
	// OutcomeFailed is acknowledged to the provider; the failure is reported
	// through logs, metrics and a reconciliation.failed event.
	OutcomeFailed Outcome = "failed"
)

type Result struct {
	Outcome   Outcome
	PaymentID model.PaymentID
	SaleID    model.SaleID
	Status    model.PaymentStatus
}

type PaymentFetcher interface {
	GetPayment(ctx context.Context, id model.PaymentID) (*payload.Payment, error)
}

// Delivery is an inbound notification as received over HTTP.
type Delivery struct {
	Body      []byte
	Signature string
	// QueryPaymentID is the data.id query parameter, used when the body has
	// none and signatures are not required.
	QueryPaymentID string
	QueryKind      string
}

type Reconciler struct {
	provider            PaymentFetcher
	store               datastore.SaleStore
	publisher           message.Publisher
	verifier            *Verifier
	descriptionFallback bool
	logger              *slog.Logger
}

func NewReconciler(provider PaymentFetcher, store datastore.SaleStore, publisher message.Publisher, cfg config.Webhook, logger *slog.Logger) *Reconciler {
	r := &Reconciler{
		provider:            provider,
		store:               store,
		publisher:           publisher,
		descriptionFallback: cfg.DescriptionFallback,
		logger:              logger,
	}
	if cfg.RequireSignature {
		r.verifier = NewVerifier(cfg.Secret)
	}
	return r
}

// Handle authenticates and parses d, then reconciles the payment it names.
// Errors are client errors (validation, authenticity) or failures to fetch
// the payment; datastore failures are reported but not returned.
func (r *Reconciler) Handle(ctx context.Context, d Delivery) (Result, error) {
	r.logger.InfoContext(ctx, "Webhook received", "bytes", len(d.Body))

	if r.verifier != nil {
		if err := r.verifier.Verify(d.Body, d.Signature); err != nil {
			unauthorizedCounter.Inc()
			r.logger.WarnContext(ctx, "Signature rejected", "error", err)
			return Result{}, err
		}
		r.logger.DebugContext(ctx, "Signature verified")
	}

	var n payload.Notification
	if len(bytes.TrimSpace(d.Body)) > 0 {
		if err := json.Unmarshal(d.Body, &n); err != nil {
			badRequestCounter.Inc()
			r.logger.WarnContext(ctx, "Webhook body is not a valid notification", "error", err)
			return Result{}, apperror.Validation("body", "invalid notification")
		}
	}

	// The signature covers the body only, so query parameters are trusted
	// only when signatures are not checked.
	paymentID := n.Data.ID
	kind := n.Kind()
	if r.verifier == nil {
		if paymentID == "" {
			paymentID = model.PaymentID(strings.TrimSpace(d.QueryPaymentID))
		}
		if kind == "" {
			kind = d.QueryKind
		}
	}

	if kind != "" && kind != notificationKindPayment {
		ignoredCounter.Inc()
		r.logger.InfoContext(ctx, "Notification type ignored", "type", kind, "paymentId", paymentID.String())
		return Result{Outcome: OutcomeIgnored, PaymentID: paymentID}, nil
	}

	if paymentID == "" {
		badRequestCounter.Inc()
		r.logger.WarnContext(ctx, "Webhook without payment id")
		return Result{}, apperror.Validation("data.id", "is required")
	}

	return r.Reconcile(ctx, paymentID)
}

// Reconcile re-fetches the payment and marks its sale paid when approved.
// Calling it again for the same payment repeats the same overwrite.
func (r *Reconciler) Reconcile(ctx context.Context, paymentID model.PaymentID) (Result, error) {
	ctx = logcontext.AppendCtx(ctx, slog.String("paymentId", paymentID.String()))
	result := Result{PaymentID: paymentID}

	payment, err := r.provider.GetPayment(ctx, paymentID)
	if err != nil {
		fetchFailedCounter.Inc()
		r.logger.ErrorContext(ctx, "Error fetching payment details", "error", err)
		return result, err
	}
	result.Status = payment.Status

	if payment.Status != model.PaymentStatusApproved {
		ignoredCounter.Inc()
		r.logger.InfoContext(ctx, "Payment ignored", "status", payment.Status)

		event := message.NewPaymentEvent(message.EventPaymentIgnored, paymentID)
		event.PaymentStatus = payment.Status
		r.publisher.Publish(ctx, event)

		result.Outcome = OutcomeIgnored
		return result, nil
	}

	saleID, err := r.saleID(payment)
	if err != nil {
		referenceFailedCounter.Inc()
		r.logger.ErrorContext(ctx, "Reconciliation failed", "reason", message.ReasonSaleReferenceBad, "error", err)

		event := message.NewPaymentEvent(message.EventReconciliationFailed, paymentID)
		event.PaymentStatus = payment.Status
		event.Reason = message.ReasonSaleReferenceBad
		event.Error = err.Error()
		r.publisher.Publish(ctx, event)

		result.Outcome = OutcomeFailed
		return result, nil
	}
	result.SaleID = saleID
	ctx = logcontext.AppendCtx(ctx, slog.String("saleId", saleID.String()))

	if err := r.store.UpdatePaymentStatus(ctx, saleID, model.SaleStatusPaid); err != nil {
		datastoreFailedCounter.Inc()
		r.logger.ErrorContext(ctx, "Reconciliation failed", "reason", message.ReasonDatastoreFailed, "error", err)

		event := message.NewPaymentEvent(message.EventReconciliationFailed, paymentID)
		event.SaleID = saleID.String()
		event.PaymentStatus = payment.Status
		event.SaleStatus = model.SaleStatusPaid
		event.Reason = message.ReasonDatastoreFailed
		event.Error = err.Error()
		event.Attempts = 1
		r.publisher.Publish(ctx, event)

		result.Outcome = OutcomeFailed
		return result, nil
	}

	reconciledCounter.Inc()
	r.logger.InfoContext(ctx, "Reconciliation succeeded")

	event := message.NewPaymentEvent(message.EventPaymentReconciled, paymentID)
	event.SaleID = saleID.String()
	event.PaymentStatus = payment.Status
	event.SaleStatus = model.SaleStatusPaid
	r.publisher.Publish(ctx, event)

	result.Outcome = OutcomeReconciled
	return result, nil
}

func (r *Reconciler) saleID(payment *payload.Payment) (model.SaleID, error) {
	if strings.TrimSpace(payment.ExternalReference) == "" && r.descriptionFallback {
		r.logger.Warn("Falling back to description parsing for sale reference", "paymentId", payment.ID.String())
		return model.SaleIDFromDescription(payment.Description)
	}
	return model.SaleIDFromReference(payment.ExternalReference)
}
