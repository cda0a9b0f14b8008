// Package queue carries evolution jobs over RabbitMQ so API replicas can hand
// runs to a dedicated worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/evolution"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const DefaultQueue = "ontology.evolution"

type RabbitMQ struct {
	conn   *amqp.Connection
	queue  string
	logger *zap.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func Dial(url, queue string, logger *zap.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := declare(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitMQ{
		conn:   conn,
		queue:  queue,
		logger: logger.With(zap.String("component", "queue"), zap.String("queue", queue)),
		ch:     ch,
	}, nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

// Publish enqueues a persistent evolution job.
func (q *RabbitMQ) Publish(ctx context.Context, job evolution.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ch.Publish(
		"",      // default exchange
		q.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID.String(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// Consume handles jobs one at a time until ctx ends or the broker closes the
// delivery channel. Failed or malformed jobs are dropped, not requeued.
func (q *RabbitMQ) Consume(ctx context.Context, handle func(context.Context, evolution.Job) error) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, q.queue); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		q.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.queue, err)
	}
	q.logger.Info("consuming evolution jobs")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			q.deliver(ctx, msg, handle)
		}
	}
}

func (q *RabbitMQ) deliver(ctx context.Context, msg amqp.Delivery, handle func(context.Context, evolution.Job) error) {
	var job evolution.Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		q.logger.Error("malformed evolution job", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	if err := handle(ctx, job); err != nil {
		q.logger.Error("evolution job failed", zap.String("job_id", job.ID.String()), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	if err := msg.Ack(false); err != nil {
		q.logger.Warn("ack failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

func (q *RabbitMQ) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil {
		_ = q.ch.Close()
	}
	return q.conn.Close()
}
