package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"pix-service/internal/config"
)

// Setup starts pushing the default metrics set when a push URL is configured.
func Setup(cfg config.Metrics, logger *slog.Logger) {
	if cfg.URL == "" {
		return
	}

	err := metrics.InitPush(cfg.URL, config.Millis(cfg.IntervalMs), cfg.CommonLabels, true)
	if err != nil {
		logger.Error("Error initializing metrics push", "url", cfg.URL, "error", err)
	}
}

// Handler exposes every registered metric in Prometheus text format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		metrics.WritePrometheus(w, true)
	})
}

// SinceMs records the elapsed milliseconds since start in h.
func SinceMs(h *metrics.Histogram, start time.Time) {
	h.Update(float64(time.Since(start).Milliseconds()))
}
