package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/grafana/loki-client-go/loki"
	slogloki "github.com/samber/slog-loki/v3"

	"pix-service/internal/config"
	"pix-service/internal/logcontext"
)

const serviceName = "pix-service"

// GetLogger returns the service logger and a function flushing any remote sink.
func GetLogger(cfg config.Logs) (*slog.Logger, func()) {
	level := ParseLevel(cfg.Level)

	if cfg.URL == "" {
		return localLogger(level), func() {}
	}

	logger, stop, err := remoteLogger(cfg.URL, level)
	if err != nil {
		fallback := localLogger(level)
		fallback.Error("Loki unavailable, logging to stdout", "url", cfg.URL, "error", err)
		return fallback, func() {}
	}
	return logger, stop
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func localLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(logcontext.Handler{Handler: handler}).With("service", serviceName)
}

func remoteLogger(url string, level slog.Level) (*slog.Logger, func(), error) {
	lokiConfig, err := loki.NewDefaultConfig(url)
	if err != nil {
		return nil, nil, err
	}
	client, err := loki.New(lokiConfig)
	if err != nil {
		return nil, nil, err
	}

	handler := slogloki.Option{
		Level:           level,
		Client:          client,
		AttrFromContext: []func(ctx context.Context) []slog.Attr{logcontext.Attrs},
	}.NewLokiHandler()

	return slog.New(handler).With("service", serviceName), client.Stop, nil
}
