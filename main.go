package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pix-service/internal/charge"
	"pix-service/internal/config"
	"pix-service/internal/datastore"
	"pix-service/internal/kafka"
	"pix-service/internal/logging"
	"pix-service/internal/message"
	"pix-service/internal/metrics"
	"pix-service/internal/provider"
	"pix-service/internal/redrive"
	"pix-service/internal/server"
	"pix-service/internal/webhook"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	cfg := config.MustLoadConfig(configPath)

	logger, flush := logging.GetLogger(cfg.Logs)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Setup(cfg.Metrics, logger)

	store, closeStore, err := datastore.Open(ctx, cfg.Datastore, logger)
	if err != nil {
		logger.Error("Error opening datastore", "driver", cfg.Datastore.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var publisher message.Publisher = message.Discard{}
	if cfg.Kafka.Enabled() {
		writer := kafka.NewWriter(cfg.Kafka)
		defer writer.Close()
		publisher = kafka.NewEventPublisher(writer, logger)
	} else {
		logger.Info("Kafka brokers not configured, payment events are not published")
	}

	if !cfg.Webhook.RequireSignature {
		logger.Warn("Webhook signature verification is disabled")
	}

	client := provider.NewClient(cfg.Provider, logger)
	initiator := charge.NewInitiator(client, publisher, cfg.Provider, logger)
	reconciler := webhook.NewReconciler(client, store, publisher, cfg.Webhook, logger)

	if cfg.Redrive.Enabled {
		processor := redrive.NewProcessor(store, publisher, cfg.Redrive, logger)
		reader := kafka.NewReader(cfg.Kafka)
		defer processor.Wait()
		defer reader.Close()

		go kafka.ReadPaymentEvents(ctx, reader, logger, processor.Process)
	}

	handlers := server.NewHandlers(initiator, reconciler, cfg.Webhook.SignatureHeader, cfg.Server.MaxBodyBytes, logger)
	router := server.NewRouter(handlers, cfg.Server.CorsAllowedOrigins, logger)

	if err := server.Run(ctx, cfg.Server, router, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		stop()
		flush()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
