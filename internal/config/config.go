// Package config loads client settings: defaults, then an optional YAML
// file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "cafe.yaml"

type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	Retry   RetryConfig   `yaml:"retry"`
	Monitor MonitorConfig `yaml:"monitor"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// RateLimit caps requests per second; zero disables the limiter.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=memory file badger redis postgres"`
	Path        string `yaml:"path" validate:"required_if=Backend file"`
	RedisAddr   string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPrefix string `yaml:"redis_prefix"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	Namespace   string `yaml:"namespace"`
}

type SessionConfig struct {
	MaxInactive time.Duration `yaml:"max_inactive" validate:"gt=0"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" validate:"min=1"`
	InitialDelay      time.Duration `yaml:"initial_delay" validate:"gt=0"`
	MaxDelay          time.Duration `yaml:"max_delay" validate:"gt=0"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" validate:"gte=1"`
}

type MonitorConfig struct {
	Interval    time.Duration `yaml:"interval" validate:"gt=0"`
	Refresh     bool          `yaml:"refresh"`
	MaxInFlight int           `yaml:"max_in_flight" validate:"min=1"`
	PageSize    int           `yaml:"page_size" validate:"min=1"`
}

type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic" validate:"required"`
	GroupID      string   `yaml:"group_id" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     "file",
			Path:        defaultStoragePath(),
			RedisPrefix: "cafe:",
			Namespace:   "default",
		},
		Session: SessionConfig{MaxInactive: 24 * time.Hour},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialDelay:      time.Second,
			MaxDelay:          10 * time.Second,
			BackoffMultiplier: 2,
		},
		Monitor: MonitorConfig{
			Interval:    30 * time.Second,
			Refresh:     true,
			MaxInFlight: 8,
			PageSize:    100,
		},
		Events: EventsConfig{
			KafkaTopic: "cafe-events",
			GroupID:    "cafe-notifier",
		},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cafe", "storage.json")
	}
	return filepath.Join(home, ".cafe", "storage.json")
}

// Load builds the configuration. An explicit path must exist; with no path,
// DefaultFile is used when present.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s not found", path)
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	// NEXT_PUBLIC_API_URL is honoured for deployments shared with the web frontend
	cfg.API.BaseURL = getEnv("NEXT_PUBLIC_API_URL", cfg.API.BaseURL)
	cfg.API.BaseURL = getEnv("CAFE_API_URL", cfg.API.BaseURL)
	cfg.Storage.Backend = getEnv("CAFE_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Path = getEnv("CAFE_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.RedisAddr = getEnv("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.PostgresDSN = getEnv("DATABASE_URL", cfg.Storage.PostgresDSN)
	cfg.Events.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.Events.KafkaTopic)
	cfg.Log.Level = strings.ToLower(getEnv("CAFE_LOG_LEVEL", cfg.Log.Level))

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Events.KafkaBrokers = splitList(brokers)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay %s is below retry.initial_delay %s", c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	return nil
}

// KafkaEnabled reports whether events should be forwarded to Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.Events.KafkaBrokers) > 0
}
