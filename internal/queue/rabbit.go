package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/agromonitor/fieldsight/internal/config"
)

// RabbitQueue implements Publisher and Consumer on one durable queue.
type RabbitQueue struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	prefetch  int
}

// Dial connects to RabbitMQ and declares the durable job queue.
func Dial(cfg config.QueueConfig) (*RabbitQueue, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", cfg.QueueName, err)
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &RabbitQueue{conn: conn, channel: ch, queueName: cfg.QueueName, prefetch: prefetch}, nil
}

func (q *RabbitQueue) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}

	err = q.channel.PublishWithContext(ctx, "", q.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job message: %w", err)
	}
	return nil
}

// Consume delivers messages to handle one at a time until ctx is cancelled.
// A handler error nacks the delivery without requeue; the job row already
// carries the failure and retries are operator-triggered.
func (q *RabbitQueue) Consume(ctx context.Context, handle Handler) error {
	if err := q.channel.Qos(q.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := q.channel.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", q.queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var msg Message
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				slog.Error("malformed job message, dropping", "error", err)
				_ = d.Nack(false, false)
				continue
			}

			if err := handle(ctx, msg); err != nil {
				slog.Error("job handler failed", "job_id", msg.JobID, "job_type", msg.JobType, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (q *RabbitQueue) Ping() error {
	if q.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

func (q *RabbitQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Publisher = (*RabbitQueue)(nil)
var _ Consumer = (*RabbitQueue)(nil)
