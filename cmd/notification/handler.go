package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rmaganhoto/coursereg/internal/broker"
	"github.com/rmaganhoto/coursereg/internal/events"
	"github.com/rmaganhoto/coursereg/internal/worker"
)

// Entries expire eventually; a redelivery that late means the broker lost
// track of the ack anyway and a repeat send is the lesser evil.
const dedupTTL = 24 * time.Hour

// dedupStore is the subset of the cache used to suppress duplicate sends.
type dedupStore interface {
	SetNX(ctx context.Context, key string, value any, expirationTime time.Duration) (bool, error)
}

type handler struct {
	dedup  dedupStore
	broker broker.Publisher
	logger *slog.Logger
}

func (h *handler) HandleMessage(ctx context.Context, msg amqp.Delivery) error {
	if count := worker.RetryCount(msg.Headers); count >= broker.MaxRetries {
		return worker.Park(ctx, h.broker, h.logger, msg, count)
	}

	completed, err := events.DecodeRegistrationCompleted(msg.Body)
	if err != nil {
		return err
	}

	// Marking before the send makes delivery at-most-once: a crash between
	// the mark and the send loses this notification. The accepted trade-off
	// for not emailing the user twice on redelivery.
	key := fmt.Sprintf("notification:sent:%d", completed.RegistrationID)
	first, err := h.dedup.SetNX(ctx, key, 1, dedupTTL)
	if err != nil {
		return err
	}
	if !first {
		h.logger.Info("Notification already sent, skipping", "registration_id", completed.RegistrationID)
		return nil
	}

	// The send itself is simulated; the log line is the terminal side effect.
	h.logger.Info("Sending welcome email",
		"registration_id", completed.RegistrationID,
		"user_email", completed.UserEmail,
		"course_id", completed.CourseID,
	)
	return nil
}
