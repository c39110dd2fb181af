package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmaganhoto/coursereg/internal/broker"
	"github.com/rmaganhoto/coursereg/internal/events"
	"github.com/rmaganhoto/coursereg/internal/models"
)

type fakePublisher struct {
	routingKeys []string
	bodies      [][]byte
	err         error
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.routingKeys = append(f.routingKeys, routingKey)
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestHandler(t *testing.T) (*handler, sqlmock.Sqlmock, *fakePublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pub := &fakePublisher{}
	h := &handler{
		models: models.NewModels(db),
		broker: pub,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h, mock, pub
}

func newMessage() amqp.Delivery {
	return amqp.Delivery{
		Body: []byte(`{"registration_id":1,"user_id":1,"user_email":"a@x.com","course_id":10}`),
	}
}

func TestHandleMessagePersistsThenPublishesPaid(t *testing.T) {
	h, mock, pub := newTestHandler(t)

	mock.ExpectExec(`(?s)INSERT INTO payments.*ON CONFLICT`).
		WithArgs(int64(1), paymentAmount, "paid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, h.HandleMessage(context.Background(), newMessage()))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.bodies, 1)
	assert.Equal(t, broker.RegistrationPaidRoutingKey, pub.routingKeys[0])

	paid, err := events.DecodeRegistrationPaid(pub.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), paid.RegistrationID)
	assert.Equal(t, "a@x.com", paid.UserEmail)
	assert.Equal(t, int64(10), paid.CourseID)
	assert.Equal(t, paymentAmount, paid.Amount)
}

// A crash between persist and ack redelivers the message; a second run must
// hit the same upsert and succeed, not duplicate a charge.
func TestHandleMessageRedeliveryIsIdempotent(t *testing.T) {
	h, mock, pub := newTestHandler(t)

	for range 2 {
		mock.ExpectExec(`(?s)INSERT INTO payments.*ON CONFLICT`).
			WithArgs(int64(1), paymentAmount, "paid").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, h.HandleMessage(context.Background(), newMessage()))
	require.NoError(t, h.HandleMessage(context.Background(), newMessage()))

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, pub.bodies, 2)
}

func TestHandleMessageBadPayload(t *testing.T) {
	h, mock, pub := newTestHandler(t)

	err := h.HandleMessage(context.Background(), amqp.Delivery{Body: []byte(`{"wat":true}`)})
	assert.ErrorIs(t, err, events.ErrBadPayload)
	assert.Empty(t, pub.bodies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleMessagePersistFailureSkipsPublish(t *testing.T) {
	h, mock, pub := newTestHandler(t)

	mock.ExpectExec(`(?s)INSERT INTO payments`).
		WillReturnError(errors.New("database down"))

	err := h.HandleMessage(context.Background(), newMessage())
	assert.Error(t, err)
	assert.Empty(t, pub.bodies)
}

func TestHandleMessagePublishFailureReturnsError(t *testing.T) {
	h, mock, pub := newTestHandler(t)
	pub.err = errors.New("broker down")

	mock.ExpectExec(`(?s)INSERT INTO payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := h.HandleMessage(context.Background(), newMessage())
	assert.Error(t, err)
}

// A message that only expired through the queue TTL during a consumer outage
// was never failed by a handler and must be processed, not parked.
func TestHandleMessageProcessesExpiredOnlyMessage(t *testing.T) {
	h, mock, pub := newTestHandler(t)

	mock.ExpectExec(`(?s)INSERT INTO payments.*ON CONFLICT`).
		WithArgs(int64(1), paymentAmount, "paid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := newMessage()
	msg.Headers = amqp.Table{"x-death": []any{
		amqp.Table{"reason": "expired", "queue": broker.PaymentQueue, "count": int64(broker.MaxRetries)},
	}}

	require.NoError(t, h.HandleMessage(context.Background(), msg))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.bodies, 1)
	assert.Equal(t, broker.RegistrationPaidRoutingKey, pub.routingKeys[0])
}

func TestHandleMessageParksAfterMaxRetries(t *testing.T) {
	h, mock, pub := newTestHandler(t)

	msg := newMessage()
	msg.Headers = amqp.Table{"x-death": []any{
		amqp.Table{"reason": "rejected", "queue": broker.PaymentQueue, "count": int64(broker.MaxRetries)},
	}}

	require.NoError(t, h.HandleMessage(context.Background(), msg))

	require.Len(t, pub.bodies, 1)
	assert.Equal(t, broker.RegistrationDeadRoutingKey, pub.routingKeys[0])
	assert.Equal(t, msg.Body, pub.bodies[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
