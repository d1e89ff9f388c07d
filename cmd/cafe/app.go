package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/example/cafe-client/internal/api"
	"github.com/example/cafe-client/internal/command"
	"github.com/example/cafe-client/internal/config"
	"github.com/example/cafe-client/internal/events"
	"github.com/example/cafe-client/internal/fulfillment"
	"github.com/example/cafe-client/internal/infrastructure/kafka"
	"github.com/example/cafe-client/internal/infrastructure/store"
	"github.com/example/cafe-client/internal/logging"
	"github.com/example/cafe-client/internal/notification"
	"github.com/example/cafe-client/internal/query"
	"github.com/example/cafe-client/internal/retry"
	"github.com/example/cafe-client/internal/session"
)

// globalFlags override the loaded configuration.
type globalFlags struct {
	configPath string
	apiURL     string
	storage    string
	logLevel   string
}

// app holds the components shared by every subcommand.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	kv        store.KV
	sessions  *session.Manager
	client    *api.Client
	bus       *events.Bus
	publisher events.Publisher
	producer  *kafka.Producer
}

func newApp(ctx context.Context, flags globalFlags, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.apiURL != "" {
		cfg.API.BaseURL = flags.apiURL
	}
	if flags.storage != "" {
		cfg.Storage.Backend = flags.storage
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, stderr)

	kv, err := store.Open(ctx, store.Options{
		Backend:     cfg.Storage.Backend,
		Path:        cfg.Storage.Path,
		RedisAddr:   cfg.Storage.RedisAddr,
		RedisPrefix: cfg.Storage.RedisPrefix,
		PostgresDSN: cfg.Storage.PostgresDSN,
		Namespace:   cfg.Storage.Namespace,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		kv:     kv,
		sessions: session.NewManager(kv,
			session.WithLogger(logger),
			session.WithMaxInactive(cfg.Session.MaxInactive),
		),
		client: api.NewClient(cfg.API.BaseURL,
			api.WithTimeout(cfg.API.Timeout),
			api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
			api.WithLogger(logger),
		),
		bus: events.NewBus(),
	}
	a.publisher = a.bus
	if cfg.KafkaEnabled() {
		a.producer = kafka.NewProducer(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		a.publisher = events.Multi{a.bus, a.producer}
		logger.Debug("forwarding events to kafka", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
	}
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	errs = append(errs, a.kv.Close())
	return errors.Join(errs...)
}

func (a *app) retryOptions() retry.Options {
	return retry.Options{
		MaxAttempts:       a.cfg.Retry.MaxAttempts,
		InitialDelay:      a.cfg.Retry.InitialDelay,
		MaxDelay:          a.cfg.Retry.MaxDelay,
		BackoffMultiplier: a.cfg.Retry.BackoffMultiplier,
		Logger:            a.logger,
	}
}

// notify prints order notifications published during the command to w.
func (a *app) notify(w io.Writer) func() {
	return notification.NewHandler(notification.NewWriterNotifier(w), a.logger).Subscribe(a.bus)
}

func (a *app) cart() *command.Handler {
	return command.NewHandler(a.client, a.sessions,
		command.WithPublisher(a.publisher),
		command.WithLogger(a.logger),
		command.WithRetry(a.retryOptions()),
		command.WithMaxInactive(a.cfg.Session.MaxInactive),
	)
}

func (a *app) completions() *fulfillment.CompletionIndex {
	return fulfillment.NewCompletionIndex(a.kv, a.logger)
}

func (a *app) query(index *fulfillment.CompletionIndex) *query.Handler {
	opts := []query.Option{
		query.WithLogger(a.logger),
		query.WithPage(api.Page{Limit: a.cfg.Monitor.PageSize}),
	}
	if index != nil {
		opts = append(opts, query.WithCompletionIndex(index))
	}
	return query.NewHandler(a.client, opts...)
}

func (a *app) monitor(index *fulfillment.CompletionIndex) *fulfillment.Monitor {
	return fulfillment.NewMonitor(a.client, fulfillment.NewBoard(), index,
		fulfillment.WithPublisher(a.publisher),
		fulfillment.WithLogger(a.logger),
		fulfillment.WithInterval(a.cfg.Monitor.Interval),
		fulfillment.WithRefresh(a.cfg.Monitor.Refresh),
		fulfillment.WithMaxInFlight(a.cfg.Monitor.MaxInFlight),
		fulfillment.WithPage(api.Page{Limit: a.cfg.Monitor.PageSize}),
	)
}
