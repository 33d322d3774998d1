package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"pix-service/internal/config"
)

// Run serves handler until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Server, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Port),
		Handler:      handler,
		ReadTimeout:  config.Millis(cfg.ReadTimeoutMs),
		WriteTimeout: config.Millis(cfg.WriteTimeoutMs),
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Millis(cfg.ShutdownTimeoutMs))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down http server")
	}
	return nil
}
