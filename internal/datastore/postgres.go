package datastore

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/jackc/pgx/v5/pgxpool"

	"pix-service/internal/apperror"
	pixmetrics "pix-service/internal/metrics"
	"pix-service/internal/model"
)

var postgresDuration = metrics.GetOrCreateHistogram(`pix_datastore_request_duration_milliseconds{driver="postgres"}`)

// PostgresStore updates the sales table directly.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, timeout: timeout, logger: logger}
}

func (s *PostgresStore) UpdatePaymentStatus(ctx context.Context, saleID model.SaleID, status model.SaleStatus) error {
	defer pixmetrics.SinceMs(postgresDuration, time.Now())

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	query := `UPDATE sales SET payment_status = $1, updated_at = now() WHERE id::text = $2`
	tag, err := s.pool.Exec(ctx, query, string(status), saleID.String())
	if err != nil {
		return &apperror.DownstreamError{Op: "update sale payment status", Err: err}
	}

	if tag.RowsAffected() == 0 {
		s.logger.WarnContext(ctx, "No sale matched payment status update", "saleId", saleID.String(), "status", status)
	}
	return nil
}

// PaymentStatus reads the current status of a sale.
func (s *PostgresStore) PaymentStatus(ctx context.Context, saleID model.SaleID) (model.SaleStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT payment_status FROM sales WHERE id::text = $1`, saleID.String()).Scan(&status)
	if err != nil {
		return model.SaleStatusUnknown, err
	}
	return model.SaleStatus(status), nil
}
