package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/cafe-client/internal/config"
	"github.com/example/cafe-client/internal/infrastructure/kafka"
	"github.com/example/cafe-client/internal/logging"
	"github.com/example/cafe-client/internal/notification"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(logging.Config{Level: "error"}, os.Stderr).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr).
		With("service", "notifier")

	if !cfg.KafkaEnabled() {
		logger.Error("no kafka brokers configured; set KAFKA_BROKERS or events.kafka_brokers")
		os.Exit(1)
	}

	logger.Info("starting notifier",
		"brokers", cfg.Events.KafkaBrokers,
		"topic", cfg.Events.KafkaTopic,
		"group", cfg.Events.GroupID,
	)

	handler := notification.NewHandler(
		notification.NewLogNotifier(logger.With("component", "notifications")),
		logger,
	)

	consumer := kafka.NewConsumer(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, cfg.Events.GroupID, logger)
	defer consumer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("starting event consumer")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Error("consumer error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-done:
	}

	logger.Info("shutting down")
	cancel()
	<-done
}
