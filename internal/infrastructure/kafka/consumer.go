package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/cafe-client/internal/events"
	"github.com/segmentio/kafka-go"
)

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event events.Event) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	logger *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, logger)
}

func newConsumer(reader messageReader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: reader, logger: logger.With("component", "kafka_consumer")}
}

// DecodeMessage unwraps an event envelope written by Producer.
func DecodeMessage(value []byte) (events.Event, error) {
	var event events.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return events.Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.EventType == "" {
		return events.Event{}, fmt.Errorf("event has no type")
	}
	return event, nil
}

// Consume reads until ctx is done. Malformed messages and handler failures
// are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("error reading message", "error", err)
				continue
			}

			event, err := DecodeMessage(msg.Value)
			if err != nil {
				c.logger.Warn("skipping message", "key", string(msg.Key), "error", err)
				continue
			}

			if err := handler(ctx, event); err != nil {
				c.logger.Error("error handling message",
					"event_type", event.EventType,
					"aggregate_id", event.AggregateID,
					"error", err,
				)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
