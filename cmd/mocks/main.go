package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"pix-service/internal/mocks"
)

// Serves a fake Mercado Pago payments API and a fake Supabase sales table on
// one port. Point provider.base-url and datastore.supabase.url at it.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	port := getenv("MOCK_PORT", "8085")
	secret := os.Getenv("MP_WEBHOOK_SECRET")

	var sales []string
	for _, id := range strings.Split(getenv("MOCK_SALES", "1,2,3,42"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			sales = append(sales, id)
		}
	}

	mux := http.NewServeMux()
	mocks.NewProvider(secret, getenv("MOCK_SIGNATURE_HEADER", "X-Signature"), logger).Register(mux)
	mocks.NewDatastore(sales...).Register(mux)

	logger.Info("Mocks listening", "port", port, "sales", sales)
	if err := http.ListenAndServe(":"+port, mocks.LoggingMiddleware(logger, mux)); err != nil {
		logger.Error("Mocks stopped", "error", err)
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
