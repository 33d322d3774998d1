package charge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pix-service/internal/apperror"
	"pix-service/internal/config"
	"pix-service/internal/logcontext"
	"pix-service/internal/message"
	"pix-service/internal/model"
	"pix-service/internal/payload"
)

const paymentMethodPix = "pix"

var (
	createdCounter          = metrics.GetOrCreateCounter(`pix_charge_total{result="created"}`)
	validationFailedCounter = metrics.GetOrCreateCounter(`pix_charge_total{result="validation_failed"}`)
	providerRejectedCounter = metrics.GetOrCreateCounter(`pix_charge_total{result="provider_rejected"}`)
	internalErrorCounter    = metrics.GetOrCreateCounter(`pix_charge_total{result="internal_error"}`)
)

type PaymentCreator interface {
	CreatePayment(ctx context.Context, body payload.CreatePayment, idempotencyKey string) (*payload.Payment, error)
}

// Initiator creates PIX charges for sales.
type Initiator struct {
	provider        PaymentCreator
	publisher       message.Publisher
	notificationURL string
	payerEmail      string
	logger          *slog.Logger
}

func NewInitiator(provider PaymentCreator, publisher message.Publisher, cfg config.Provider, logger *slog.Logger) *Initiator {
	return &Initiator{
		provider:        provider,
		publisher:       publisher,
		notificationURL: cfg.NotificationURL,
		payerEmail:      cfg.PayerEmail,
		logger:          logger,
	}
}

// Create asks the provider for a PIX charge for req. Every call uses a fresh
// idempotency key: retries of a failed call are new charges as far as the
// provider is concerned, but a single call is never processed twice.
func (i *Initiator) Create(ctx context.Context, req payload.ChargeRequest) (*payload.ChargeResponse, error) {
	if err := validate(req); err != nil {
		validationFailedCounter.Inc()
		i.logger.InfoContext(ctx, "Charge request rejected", "error", err)
		return nil, err
	}

	idempotencyKey := uuid.NewString()
	ctx = logcontext.AppendCtx(ctx,
		slog.String("saleId", req.SaleID.String()),
		slog.String("idempotencyKey", idempotencyKey),
	)

	body := payload.CreatePayment{
		TransactionAmount: json.Number(req.Total.String()),
		Description:       description(req),
		PaymentMethodID:   paymentMethodPix,
		ExternalReference: model.SaleReference(req.SaleID),
		NotificationURL:   i.notificationURL,
		Payer:             payload.Payer{Email: i.email(req)},
	}

	i.logger.InfoContext(ctx, "Charge requested", "amount", body.TransactionAmount, "externalReference", body.ExternalReference)

	payment, err := i.provider.CreatePayment(ctx, body, idempotencyKey)
	if err != nil {
		var upstream *apperror.UpstreamError
		if errors.As(err, &upstream) && upstream.Rejected() {
			providerRejectedCounter.Inc()
			i.logger.WarnContext(ctx, "Charge rejected by provider", "status", upstream.Status)
		} else {
			internalErrorCounter.Inc()
			i.logger.ErrorContext(ctx, "Charge creation failed", "error", err)
		}
		return nil, err
	}

	qr := payment.QR()
	if qr == nil || qr.QRCode == "" {
		internalErrorCounter.Inc()
		err := apperror.Internal("create payment", errors.Errorf("payment %s has no PIX transaction data", payment.ID))
		i.logger.ErrorContext(ctx, "Charge creation failed", "error", err)
		return nil, err
	}

	createdCounter.Inc()
	i.logger.InfoContext(ctx, "Charge created", "paymentId", payment.ID.String(), "status", payment.Status)

	event := message.NewPaymentEvent(message.EventChargeCreated, payment.ID)
	event.SaleID = req.SaleID.String()
	event.PaymentStatus = payment.Status
	i.publisher.Publish(ctx, event)

	return &payload.ChargeResponse{
		QRCode:     qr.QRCodeBase64,
		CopiaECola: qr.QRCode,
		ID:         payment.ID,
		SaleID:     req.SaleID,
	}, nil
}

func validate(req payload.ChargeRequest) error {
	if req.SaleID.IsZero() {
		return apperror.Validation("sale_id", "is required")
	}
	if err := req.SaleID.Validate(); err != nil {
		return apperror.Validation("sale_id", "must contain only letters, digits, '-' or '_'")
	}
	if !req.Total.IsPositive() {
		return apperror.Validation("total", "must be a positive amount")
	}
	if !req.Total.Equal(req.Total.Round(2)) {
		return apperror.Validation("total", "must have at most two decimal places")
	}
	return nil
}

func description(req payload.ChargeRequest) string {
	if d := strings.TrimSpace(req.Descricao); d != "" {
		return d
	}
	return model.DefaultDescription(req.SaleID)
}

func (i *Initiator) email(req payload.ChargeRequest) string {
	if e := strings.TrimSpace(req.Email); e != "" {
		return e
	}
	return i.payerEmail
}
