package message

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pix-service/internal/model"
)

type EventType string

const (
	EventChargeCreated        EventType = "charge.created"
	EventPaymentReconciled    EventType = "payment.reconciled"
	EventPaymentIgnored       EventType = "payment.ignored"
	EventReconciliationFailed EventType = "reconciliation.failed"
)

const (
	ReasonDatastoreFailed  = "datastore_update_failed"
	ReasonSaleReferenceBad = "sale_reference_missing"
)

// PaymentEvent is published at each payment lifecycle step.
type PaymentEvent struct {
	ID            uuid.UUID           `json:"id"`
	Event         EventType           `json:"event"`
	PaymentID     model.PaymentID     `json:"paymentId"`
	SaleID        string              `json:"saleId,omitempty"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus,omitempty"`
	SaleStatus    model.SaleStatus    `json:"saleStatus,omitempty"`
	Reason        string              `json:"reason,omitempty"`
	Error         string              `json:"error,omitempty"`
	Attempts      int                 `json:"attempts"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

func NewPaymentEvent(event EventType, paymentID model.PaymentID) PaymentEvent {
	return PaymentEvent{
		ID:         uuid.New(),
		Event:      event,
		PaymentID:  paymentID,
		OccurredAt: time.Now().UTC(),
	}
}

// Retryable reports whether a redrive can fix the failure this event describes.
func (e PaymentEvent) Retryable() bool {
	return e.Event == EventReconciliationFailed && e.Reason == ReasonDatastoreFailed && e.SaleID != ""
}

// Publisher emits lifecycle events. Implementations handle their own failures.
type Publisher interface {
	Publish(ctx context.Context, events ...PaymentEvent)
}

// Discard is the Publisher used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, ...PaymentEvent) {}
