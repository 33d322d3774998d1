package datastore

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

	"pix-service/internal/apperror"
	"pix-service/internal/config"
	pixmetrics "pix-service/internal/metrics"
	"pix-service/internal/model"
	"pix-service/internal/payload"
)

const maxResponseBytes = 64 << 10

var supabaseDuration = metrics.GetOrCreateHistogram(`pix_datastore_request_duration_milliseconds{driver="supabase"}`)

// SupabaseStore updates sales through the PostgREST API exposed by Supabase.
type SupabaseStore struct {
	endpoint    string
	serviceRole string
	client      *http.Client
	logger      *slog.Logger
}

func NewSupabaseStore(cfg config.Datastore, logger *slog.Logger) *SupabaseStore {
	return &SupabaseStore{
		endpoint:    strings.TrimRight(cfg.Supabase.URL, "/") + "/rest/v1/" + url.PathEscape(cfg.Supabase.Table),
		serviceRole: cfg.Supabase.ServiceRole,
		client:      &http.Client{Timeout: config.Millis(cfg.TimeoutMs)},
		logger:      logger,
	}
}

func (s *SupabaseStore) UpdatePaymentStatus(ctx context.Context, saleID model.SaleID, status model.SaleStatus) error {
	const op = "update sale payment status"
	defer pixmetrics.SinceMs(supabaseDuration, time.Now())

	body, err := json.Marshal(payload.StatusUpdate{PaymentStatus: status})
	if err != nil {
		return &apperror.DownstreamError{Op: op, Err: err}
	}

	query := url.Values{"id": {"eq." + saleID.String()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.endpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return &apperror.DownstreamError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.serviceRole)
	req.Header.Set("Authorization", "Bearer "+s.serviceRole)
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.client.Do(req)
	if err != nil {
		return &apperror.DownstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &apperror.DownstreamError{Op: op, Err: err}
	}

	if resp.StatusCode >= 300 {
		return &apperror.DownstreamError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}

	if trimmed := bytes.TrimSpace(respBody); bytes.Equal(trimmed, []byte("[]")) {
		s.logger.WarnContext(ctx, "No sale matched payment status update", "saleId", saleID.String(), "status", status)
		return nil
	}

	s.logger.DebugContext(ctx, "Sale payment status updated", "saleId", saleID.String(), "status", status, "response", string(respBody))
	return nil
}
