package datastore

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"pix-service/internal/config"
	"pix-service/internal/model"
)

// SaleStore writes a sale's payment status. Writes overwrite the field, so
// repeating one is harmless.
type SaleStore interface {
	UpdatePaymentStatus(ctx context.Context, saleID model.SaleID, status model.SaleStatus) error
}

// Open builds the store selected by cfg.Driver. The returned function
// releases its resources.
func Open(ctx context.Context, cfg config.Datastore, logger *slog.Logger) (SaleStore, func(), error) {
	switch cfg.Driver {
	case config.DriverSupabase:
		return NewSupabaseStore(cfg, logger), func() {}, nil
	case config.DriverPostgres:
		if cfg.Postgres.MigrationsDir != "" {
			if err := RunMigrations(cfg.Postgres.DSN, cfg.Postgres.MigrationsDir); err != nil {
				return nil, nil, err
			}
		}
		pool, err := GetPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(pool, config.Millis(cfg.TimeoutMs), logger), pool.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown datastore driver %q", cfg.Driver)
	}
}
