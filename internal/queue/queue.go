// Package queue publishes and consumes job messages over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Message is the job envelope carried on the wire.
type Message struct {
	JobID   uuid.UUID       `json:"job_id"`
	JobType string          `json:"job_type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Publisher enqueues job messages. Fire-and-forget: the durable job row is
// the source of truth, not the broker.
type Publisher interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Handler processes one dequeued job message.
type Handler func(ctx context.Context, msg Message) error

// Consumer delivers messages to a handler one at a time.
type Consumer interface {
	Consume(ctx context.Context, handle Handler) error
}
