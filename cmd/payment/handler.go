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

// Payment is simulated; every registration is charged the same amount.
const paymentAmount = 49.99

type handler struct {
	models models.Models
	broker broker.Publisher
	logger *slog.Logger
}

func (h *handler) HandleMessage(ctx context.Context, msg amqp.Delivery) error {
	if count := worker.RetryCount(msg.Headers); count >= broker.MaxRetries {
		return worker.Park(ctx, h.broker, h.logger, msg, count)
	}

	reg, err := events.DecodeRegistrationNew(msg.Body)
	if err != nil {
		return err
	}
	h.logger.Info("Received new registration", "registration_id", reg.RegistrationID)

	payment := &models.Payment{
		RegistrationID: reg.RegistrationID,
		Amount:         paymentAmount,
		Status:         "paid",
	}
	if err := h.models.Payment.Upsert(ctx, payment); err != nil {
		return err
	}
	h.logger.Info("Payment recorded", "registration_id", reg.RegistrationID, "amount", payment.Amount)

	paid := events.RegistrationPaid{
		RegistrationID: reg.RegistrationID,
		UserID:         reg.UserID,
		UserEmail:      reg.UserEmail,
		CourseID:       reg.CourseID,
		Amount:         payment.Amount,
	}
	body, err := paid.Encode()
	if err != nil {
		return err
	}

	return h.broker.Publish(
		ctx,
		broker.RegistrationsExchangeName,
		broker.RegistrationPaidRoutingKey,
		body,
	)
}
