package payload

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"pix-service/internal/model"
)

// ChargeRequest is the body accepted by POST /api/pix.
type ChargeRequest struct {
	Total     decimal.Decimal `json:"total"`
	Descricao string          `json:"descricao,omitempty"`
	SaleID    model.SaleID    `json:"sale_id"`
	Email     string          `json:"email,omitempty"`
}

// ChargeResponse is returned to the caller once the provider created the charge.
type ChargeResponse struct {
	QRCode     string          `json:"qrCode"`
	CopiaECola string          `json:"copiaECola"`
	ID         model.PaymentID `json:"id"`
	SaleID     model.SaleID    `json:"sale_id"`
}

type Error struct {
	Error string `json:"error"`
}

// Notification is the provider webhook body. Only the payment id is used;
// everything else is re-fetched.
type Notification struct {
	Type   string `json:"type,omitempty"`
	Topic  string `json:"topic,omitempty"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID model.PaymentID `json:"id"`
	} `json:"data"`
}

// Kind returns the notification type, whichever field the provider used.
func (n Notification) Kind() string {
	if n.Type != "" {
		return n.Type
	}
	return n.Topic
}

type Payer struct {
	Email string `json:"email"`
}

// CreatePayment is the provider's POST /v1/payments body.
type CreatePayment struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	ExternalReference string      `json:"external_reference"`
	NotificationURL   string      `json:"notification_url,omitempty"`
	Payer             Payer       `json:"payer"`
}

type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

type PointOfInteraction struct {
	Type            string           `json:"type,omitempty"`
	TransactionData *TransactionData `json:"transaction_data"`
}

// Payment is the provider's payment record.
type Payment struct {
	ID                 model.PaymentID     `json:"id"`
	Status             model.PaymentStatus `json:"status"`
	StatusDetail       string              `json:"status_detail,omitempty"`
	ExternalReference  string              `json:"external_reference,omitempty"`
	Description        string              `json:"description,omitempty"`
	TransactionAmount  json.Number         `json:"transaction_amount,omitempty"`
	PaymentMethodID    string              `json:"payment_method_id,omitempty"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction,omitempty"`
}

// QR returns the PIX transaction data, or nil when the record has none.
func (p *Payment) QR() *TransactionData {
	if p == nil || p.PointOfInteraction == nil {
		return nil
	}
	return p.PointOfInteraction.TransactionData
}

// StatusUpdate is the datastore PATCH body.
type StatusUpdate struct {
	PaymentStatus model.SaleStatus `json:"payment_status"`
}
