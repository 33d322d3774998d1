package mocks

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pix-service/internal/model"
	"pix-service/internal/payload"
	"pix-service/internal/webhook"
)

const (
	contentType   = "application/json"
	notifyTimeout = 5 * time.Second
)

type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type storedPayment struct {
	payment         payload.Payment
	notificationURL string
}

// Provider imitates the parts of the Mercado Pago payments API the service
// uses. Approving a payment sends a signed notification to the URL given at
// creation time.
type Provider struct {
	mu            sync.Mutex
	nextID        int64
	payments      map[string]*storedPayment
	byIdempotency map[string]string
	secret        string
	signatureHdr  string
	client        *http.Client
	logger        *slog.Logger
}

func NewProvider(secret, signatureHeader string, logger *slog.Logger) *Provider {
	return &Provider{
		nextID:        1_000_000_000,
		payments:      make(map[string]*storedPayment),
		byIdempotency: make(map[string]string),
		secret:        secret,
		signatureHdr:  signatureHeader,
		client:        &http.Client{Timeout: notifyTimeout},
		logger:        logger,
	}
}

func (p *Provider) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/payments", p.createPayment)
	mux.HandleFunc("GET /v1/payments/{id}", p.getPayment)
	mux.HandleFunc("POST /_mock/payments/{id}/{status}", p.setStatus)
}

func (p *Provider) createPayment(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "unauthorized", Status: http.StatusUnauthorized})
		return
	}

	var req payload.CreatePayment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid body", Status: http.StatusBadRequest})
		return
	}
	amount, err := decimal.NewFromString(req.TransactionAmount.String())
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid transaction_amount", Status: http.StatusBadRequest})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := r.Header.Get("X-Idempotency-Key")
	if id, ok := p.byIdempotency[key]; ok && key != "" {
		writeJSON(w, http.StatusCreated, p.payments[id].payment)
		return
	}

	p.nextID++
	id := strconv.FormatInt(p.nextID, 10)
	code := fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s5204000053039865406%s", id, amount.StringFixed(2))

	stored := &storedPayment{
		payment: payload.Payment{
			ID:                model.PaymentID(id),
			Status:            model.PaymentStatusPending,
			ExternalReference: req.ExternalReference,
			Description:       req.Description,
			TransactionAmount: req.TransactionAmount,
			PaymentMethodID:   req.PaymentMethodID,
			PointOfInteraction: &payload.PointOfInteraction{
				Type: "OPENPLATFORM",
				TransactionData: &payload.TransactionData{
					QRCode:       code,
					QRCodeBase64: base64.StdEncoding.EncodeToString([]byte(code)),
				},
			},
		},
		notificationURL: req.NotificationURL,
	}
	p.payments[id] = stored
	if key != "" {
		p.byIdempotency[key] = id
	}

	writeJSON(w, http.StatusCreated, stored.payment)
}

func (p *Provider) getPayment(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	stored, ok := p.payments[r.PathValue("id")]
	var payment payload.Payment
	if ok {
		payment = stored.payment
	}
	p.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Payment not found", Status: http.StatusNotFound})
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (p *Provider) setStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status := model.PaymentStatus(r.PathValue("status"))

	p.mu.Lock()
	stored, ok := p.payments[id]
	var notifyURL string
	if ok {
		stored.payment.Status = status
		notifyURL = stored.notificationURL
	}
	p.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Payment not found", Status: http.StatusNotFound})
		return
	}

	if notifyURL != "" {
		if err := p.Notify(notifyURL, model.PaymentID(id)); err != nil {
			p.logger.Error("Error sending notification", "url", notifyURL, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notify posts a signed payment notification to url and returns an error
// when the receiver does not answer 200.
func (p *Provider) Notify(url string, id model.PaymentID) error {
	body, err := json.Marshal(map[string]any{
		"action": "payment.updated",
		"type":   "payment",
		"data":   map[string]string{"id": id.String()},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if p.secret != "" {
		req.Header.Set(p.signatureHdr, "sha256="+webhook.Sign(p.secret, body))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification answered %s", resp.Status)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
