package main

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rmaganhoto/coursereg/internal/broker"
	"github.com/rmaganhoto/coursereg/internal/events"
	"github.com/rmaganhoto/coursereg/internal/models"
	"github.com/rmaganhoto/coursereg/internal/worker"
)

type handler struct {
	models models.Models
	broker broker.Publisher
	logger *slog.Logger
}

func (h *handler) HandleMessage(ctx context.Context, msg amqp.Delivery) error {
	if count := worker.RetryCount(msg.Headers); count >= broker.MaxRetries {
		return worker.Park(ctx, h.broker, h.logger, msg, count)
	}

	paid, err := events.DecodeRegistrationPaid(msg.Body)
	if err != nil {
		return err
	}
	h.logger.Info("Received paid registration", "registration_id", paid.RegistrationID)

	enrollment := &models.Enrollment{
		RegistrationID: paid.RegistrationID,
		UserID:         paid.UserID,
		CourseID:       paid.CourseID,
		Active:         true,
	}
	if err := h.models.Enrollment.Upsert(ctx, enrollment); err != nil {
		return err
	}
	h.logger.Info("Enrollment recorded", "registration_id", paid.RegistrationID, "course_id", paid.CourseID)

	completed := events.RegistrationCompleted{
		RegistrationID: paid.RegistrationID,
		UserID:         paid.UserID,
		UserEmail:      paid.UserEmail,
		CourseID:       paid.CourseID,
	}
	body, err := completed.Encode()
	if err != nil {
		return err
	}

	return h.broker.Publish(
		ctx,
		broker.RegistrationsExchangeName,
		broker.RegistrationCompletedRoutingKey,
		body,
	)
}
