package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"outreach/internal/platform/kafka"
)

// Publisher pushes enriched membership records to the event stream.
// Publishing is fire-and-forget from the consumer's perspective, but a
// transport failure must surface to the caller; nothing here retries.
type Publisher interface {
	PublishMembership(ctx context.Context, record *Membership) error
}

// KafkaPublisher publishes memberships as JSON, keyed by program so one
// program's joins stay ordered within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaPublisher builds a publisher over the given producer.
func NewKafkaPublisher(producer *kafka.Producer, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

func (p *KafkaPublisher) PublishMembership(ctx context.Context, record *Membership) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode membership event: %w", err)
	}
	if err := p.producer.Publish(ctx, record.ProgramID, payload); err != nil {
		p.logger.ErrorContext(ctx, "membership event publish failed",
			"program_id", record.ProgramID,
			"user_id", record.UserID,
			"error", err,
		)
		return err
	}
	return nil
}
