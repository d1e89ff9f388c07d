package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	RedisAddr   string
	RedisPrefix string
	PostgresDSN string
	Namespace   string
	Logger      *slog.Logger
}

// Open builds the configured backend. File and badger backends use Path,
// redis uses RedisAddr, postgres uses PostgresDSN.
func Open(ctx context.Context, opts Options) (KV, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(opts.Path, logger)
	case BackendBadger:
		return OpenBadger(opts.Path, logger)
	case BackendRedis:
		return ConnectRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	case BackendPostgres:
		db, err := ConnectPostgres(opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s := NewPostgresStore(db, opts.Namespace)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
