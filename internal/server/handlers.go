package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"pix-service/internal/apperror"
	"pix-service/internal/payload"
	"pix-service/internal/webhook"
)

const (
	livenessMessage     = "Servidor PIX + Webhook ativo!"
	chargeInternalError = "internal error creating PIX charge"
	webhookInternal     = "internal error processing webhook"
	contentTypeJSON     = "application/json"
)

type ChargeCreator interface {
	Create(ctx context.Context, req payload.ChargeRequest) (*payload.ChargeResponse, error)
}

type NotificationHandler interface {
	Handle(ctx context.Context, d webhook.Delivery) (webhook.Result, error)
}

type Handlers struct {
	charges         ChargeCreator
	notifications   NotificationHandler
	signatureHeader string
	maxBodyBytes    int64
	logger          *slog.Logger
}

func NewHandlers(charges ChargeCreator, notifications NotificationHandler, signatureHeader string, maxBodyBytes int64, logger *slog.Logger) *Handlers {
	return &Handlers{
		charges:         charges,
		notifications:   notifications,
		signatureHeader: signatureHeader,
		maxBodyBytes:    maxBodyBytes,
		logger:          logger,
	}
}

func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, livenessMessage)
}

func (h *Handlers) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) CreateCharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req payload.ChargeRequest
	if err := json.NewDecoder(h.limit(w, r)).Decode(&req); err != nil {
		h.logger.InfoContext(ctx, "Invalid charge request body", "error", err)
		writeJSON(w, http.StatusBadRequest, payload.Error{Error: "invalid request body"})
		return
	}

	resp, err := h.charges.Create(ctx, req)
	if err != nil {
		var upstream *apperror.UpstreamError
		if errors.As(err, &upstream) && upstream.Rejected() {
			writeRaw(w, upstream.Status, upstream.ContentType, upstream.Body)
			return
		}
		status := apperror.HTTPStatus(err)
		writeJSON(w, status, payload.Error{Error: apperror.PublicMessage(err, chargeInternalError)})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The signature covers these exact bytes; they must not be re-encoded.
	body, err := io.ReadAll(h.limit(w, r))
	if err != nil {
		h.logger.WarnContext(ctx, "Error reading webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, payload.Error{Error: "unreadable body"})
		return
	}

	query := r.URL.Query()
	delivery := webhook.Delivery{
		Body:           body,
		Signature:      r.Header.Get(h.signatureHeader),
		QueryPaymentID: firstNonEmpty(query.Get("data.id"), query.Get("id")),
		QueryKind:      firstNonEmpty(query.Get("type"), query.Get("topic")),
	}

	result, err := h.notifications.Handle(ctx, delivery)
	if err != nil {
		status := apperror.HTTPStatus(err)
		if status != http.StatusBadRequest && status != http.StatusUnauthorized {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, payload.Error{Error: apperror.PublicMessage(err, webhookInternal)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(result.Outcome)})
}

func (h *Handlers) limit(w http.ResponseWriter, r *http.Request) io.Reader {
	if h.maxBodyBytes <= 0 {
		return r.Body
	}
	return http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType == "" {
		contentType = contentTypeJSON
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
