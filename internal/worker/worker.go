// Package worker provides the generic consume loop every pipeline service
// runs: pull one message at a time, dispatch it to a handler, ack on success,
// nack on failure. Messages are processed serially so per-registration
// ordering is preserved end to end.
package worker

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rmaganhoto/coursereg/internal/broker"
)

// Handlerer is an interface for handling messages.
type Handlerer interface {
	HandleMessage(ctx context.Context, msg amqp.Delivery) error
}

// Consumer is the consume side of the broker.
type Consumer interface {
	Consume(queueName string) (<-chan amqp.Delivery, error)
}

// Worker is a generic worker that consumes messages from a queue.
type Worker struct {
	queueName string
	consumer  Consumer
	logger    *slog.Logger
}

func New(queueName string, consumer Consumer, logger *slog.Logger) *Worker {
	return &Worker{
		queueName: queueName,
		consumer:  consumer,
		logger:    logger,
	}
}

// Run consumes until ctx is cancelled or the delivery channel closes. A
// handler already running when ctx is cancelled finishes and acks; messages
// not yet pulled stay queued for the next consumer.
func (w *Worker) Run(ctx context.Context, handler Handlerer) error {
	msgs, err := w.consumer.Consume(w.queueName)
	if err != nil {
		return err
	}

	w.logger.Info("Waiting for messages.", "queue", w.queueName)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down worker...", "queue", w.queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Info("Channel closed, shutting down.", "queue", w.queueName)
				return nil
			}

			if err := handler.HandleMessage(ctx, msg); err != nil {
				w.logger.Error("Error handling message", "error", err, "queue", w.queueName)
				msg.Nack(false, false)
				continue
			}

			msg.Ack(false)
		}
	}
}

// Park moves a message that exhausted its retries onto the dead-letter
// parking queue. Returning nil makes the caller ack, which drops the message
// from its work queue for good.
func Park(ctx context.Context, pub broker.Publisher, logger *slog.Logger, msg amqp.Delivery, count int64) error {
	err := pub.Publish(
		ctx,
		broker.RegistrationsExchangeName,
		broker.RegistrationDeadRoutingKey,
		msg.Body,
	)
	if err != nil {
		return err
	}

	logger.Error("Message exceeded maximum retries, parked",
		"routing_key", msg.RoutingKey,
		"retry_count", count,
	)
	return nil
}

// RetryCount reads the rejection count from the 'x-death' header the broker
// adds when a message cycles through the dead-letter exchange. Only entries
// with reason "rejected" count: the queue TTL also dead-letters messages that
// merely sat unconsumed (reason "expired"), and those cycles must not spend
// the retry budget of a message no handler has ever failed on.
func RetryCount(headers amqp.Table) int64 {
	if headers == nil {
		return 0
	}

	xDeath, ok := headers["x-death"]
	if !ok {
		return 0
	}

	xDeathSlice, ok := xDeath.([]any)
	if !ok {
		return 0
	}

	for _, h := range xDeathSlice {
		table, ok := h.(amqp.Table)
		if !ok {
			continue
		}

		if reason, ok := table["reason"].(string); !ok || reason != "rejected" {
			continue
		}

		count, ok := table["count"].(int64)
		if !ok {
			return 0
		}
		return count
	}

	return 0
}
