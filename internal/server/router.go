package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"pix-service/internal/metrics"
)

func NewRouter(h *Handlers, allowedOrigins string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /liveness", h.Liveness)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/pix", h.CreateCharge)
	mux.HandleFunc("POST /pix", h.CreateCharge)
	mux.HandleFunc("POST /api/webhook", h.Webhook)
	mux.HandleFunc("POST /webhook", h.Webhook)

	c := cors.New(cors.Options{
		AllowedOrigins: splitOrigins(allowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})

	return requestLogging(logger, c.Handler(mux))
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
