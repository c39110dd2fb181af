package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmaganhoto/coursereg/internal/broker"
	"github.com/rmaganhoto/coursereg/internal/events"
)

type fakeDedup struct {
	seen map[string]bool
	err  error
}

func (f *fakeDedup) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakePublisher struct {
	routingKeys []string
	bodies      [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	f.routingKeys = append(f.routingKeys, routingKey)
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestHandler() (*handler, *fakeDedup, *fakePublisher) {
	dedup := &fakeDedup{seen: make(map[string]bool)}
	pub := &fakePublisher{}
	h := &handler{
		dedup:  dedup,
		broker: pub,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h, dedup, pub
}

func newMessage() amqp.Delivery {
	return amqp.Delivery{
		Body: []byte(`{"registration_id":1,"user_id":1,"user_email":"a@x.com","course_id":10}`),
	}
}

func TestHandleMessageSendsOnce(t *testing.T) {
	h, dedup, _ := newTestHandler()

	require.NoError(t, h.HandleMessage(context.Background(), newMessage()))
	assert.True(t, dedup.seen["notification:sent:1"])
}

// Redelivery of an already-handled completion must not send a second email.
func TestHandleMessageSuppressesDuplicate(t *testing.T) {
	h, _, _ := newTestHandler()

	require.NoError(t, h.HandleMessage(context.Background(), newMessage()))
	require.NoError(t, h.HandleMessage(context.Background(), newMessage()))
}

func TestHandleMessageBadPayload(t *testing.T) {
	h, dedup, _ := newTestHandler()

	err := h.HandleMessage(context.Background(), amqp.Delivery{Body: []byte(`{}`)})
	assert.ErrorIs(t, err, events.ErrBadPayload)
	assert.Empty(t, dedup.seen)
}

func TestHandleMessageDedupErrorIsRetriable(t *testing.T) {
	h, dedup, _ := newTestHandler()
	dedup.err = errors.New("redis down")

	err := h.HandleMessage(context.Background(), newMessage())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, events.ErrBadPayload)
}

func TestHandleMessageParksAfterMaxRetries(t *testing.T) {
	h, dedup, pub := newTestHandler()

	msg := newMessage()
	msg.Headers = amqp.Table{"x-death": []any{
		amqp.Table{"reason": "rejected", "queue": broker.NotificationQueue, "count": int64(broker.MaxRetries)},
	}}

	require.NoError(t, h.HandleMessage(context.Background(), msg))

	require.Len(t, pub.bodies, 1)
	assert.Equal(t, broker.RegistrationDeadRoutingKey, pub.routingKeys[0])
	assert.Empty(t, dedup.seen)
}
