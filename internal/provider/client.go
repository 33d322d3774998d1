package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"

	"pix-service/internal/apperror"
	"pix-service/internal/config"
	pixmetrics "pix-service/internal/metrics"
	"pix-service/internal/model"
	"pix-service/internal/payload"
)

const (
	IdempotencyHeader = "X-Idempotency-Key"

	maxResponseBytes = 1 << 20
)

var (
	createDuration = metrics.GetOrCreateHistogram(`pix_provider_request_duration_milliseconds{op="create_payment"}`)
	getDuration    = metrics.GetOrCreateHistogram(`pix_provider_request_duration_milliseconds{op="get_payment"}`)
)

// Client talks to the Mercado Pago payments API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(cfg config.Provider, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		client:  &http.Client{Timeout: config.Millis(cfg.TimeoutMs)},
		logger:  logger,
	}
}

// CreatePayment creates a charge. idempotencyKey must be unique per logical request.
func (c *Client) CreatePayment(ctx context.Context, body payload.CreatePayment, idempotencyKey string) (*payload.Payment, error) {
	const op = "create payment"
	defer pixmetrics.SinceMs(createDuration, time.Now())

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, apperror.Internal(op, errors.Wrap(err, "encoding request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(encoded))
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, idempotencyKey)

	c.logger.DebugContext(ctx, "Sending create payment request", "idempotencyKey", idempotencyKey, "externalReference", body.ExternalReference)

	return c.do(ctx, op, req)
}

// GetPayment fetches the full payment record.
func (c *Client) GetPayment(ctx context.Context, id model.PaymentID) (*payload.Payment, error) {
	const op = "get payment"
	defer pixmetrics.SinceMs(getDuration, time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	return c.do(ctx, op, req)
}

func (c *Client) do(ctx context.Context, op string, req *http.Request) (*payload.Payment, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Provider request failed", "op", op, "error", err)
		return nil, &apperror.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.ErrorContext(ctx, "Error reading provider response", "op", op, "error", err)
		return nil, &apperror.UpstreamError{Op: op, Err: err}
	}

	c.logger.DebugContext(ctx, "Provider responded", "op", op, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "Provider returned error status", "op", op, "status", resp.StatusCode, "body", string(respBody))
		return nil, &apperror.UpstreamError{
			Op:          op,
			Status:      resp.StatusCode,
			Body:        respBody,
			ContentType: resp.Header.Get("Content-Type"),
		}
	}

	var payment payload.Payment
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, apperror.Internal(op, errors.Wrap(err, "decoding provider response"))
	}
	return &payment, nil
}
