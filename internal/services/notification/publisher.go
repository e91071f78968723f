// Package notification delivers transfer-completed events to the outside
// world. Delivery is at-least-once; consumers deduplicate by transfer id.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"bankcards/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher hands a single event to the bus.
type Publisher interface {
	Publish(ctx context.Context, event models.TransferEvent) error
}

// StreamAdder is the subset of the redis client used for publishing.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamPublisher appends events to a redis stream, one entry per
// event, keyed by transfer id.
type RedisStreamPublisher struct {
	client StreamAdder
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client StreamAdder, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: stream,
		maxLen: 100000,
	}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, event models.TransferEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"key":     event.TransferID.String(),
			"type":    "transfer.completed",
			"payload": string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}

// LogPublisher writes events to the log. Used when no bus is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event models.TransferEvent) error {
	p.logger.WithFields(logrus.Fields{
		"transfer_id":          event.TransferID,
		"source_owner_id":      event.SourceOwnerID,
		"destination_owner_id": event.DestinationOwnerID,
		"source_masked":        event.SourceMasked,
		"destination_masked":   event.DestinationMasked,
		"amount":               event.Amount.StringFixed(2),
		"status":               event.Status,
		"timestamp":            event.Timestamp,
	}).Info("transfer completed")
	return nil
}
