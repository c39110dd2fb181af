// Package broker provides a wrapper around the amqp client.
package broker

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the publish side of the broker. Handlers depend on this
// interface so tests can capture publishes without a live connection.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Broker is a wrapper around the amqp client.
type Broker struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

func New() (*Broker, error) {
	conn, err := NewConnection()
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Broker{
		Conn:    conn,
		Channel: ch,
	}, nil
}

// Close releases the channel and the underlying connection.
func (b *Broker) Close() error {
	if err := b.Channel.Close(); err != nil {
		b.Conn.Close()
		return err
	}
	return b.Conn.Close()
}

func NewConnection() (*amqp.Connection, error) {
	userName := os.Getenv("RABBITMQ_USER_NAME")
	userPass := os.Getenv("RABBITMQ_USER_PASS")
	host := os.Getenv("RABBITMQ_HOST")
	port := os.Getenv("RABBITMQ_PORT")

	envVars := map[string]string{
		"RABBITMQ_HOST":      host,
		"RABBITMQ_PORT":      port,
		"RABBITMQ_USER_NAME": userName,
		"RABBITMQ_USER_PASS": userPass,
	}

	for key, value := range envVars {
		if value == "" {
			return nil, fmt.Errorf("%s environment variable not set", key)
		}
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%s", userName, userPass, host, port)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// EnsureExchange declares the registrations topic exchange. Publishers that
// own no queue call this alone; consumers get it through Setup.
func (b *Broker) EnsureExchange() error {
	err := b.Channel.ExchangeDeclare(
		RegistrationsExchangeName, // name
		RegistrationsExchangeType, // type
		true,                      // durable
		false,                     // auto-deleted
		false,                     // internal
		false,                     // no-wait
		nil,                       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare an exchange: %w", err)
	}
	return nil
}

// Setup declares the registrations topic exchange, a durable queue, and binds
// the queue to every routing key given. Redeclaring with the same arguments is
// a no-op on the broker side, so every service calls it at startup.
func (b *Broker) Setup(queueName string, routingKeys []string, queueArgs amqp.Table) error {
	if err := b.EnsureExchange(); err != nil {
		return err
	}

	q, err := b.Channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		queueArgs, // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare a queue: %w", err)
	}

	for _, rk := range routingKeys {
		err = b.Channel.QueueBind(
			q.Name,                    // queue name
			rk,                        // routing key
			RegistrationsExchangeName, // exchange
			false,                     // no-wait
			nil,                       // args
		)
		if err != nil {
			return fmt.Errorf("failed to bind a queue: %w", err)
		}
	}

	return nil
}

// RetryArgs returns the queue arguments that bounce a rejected message back
// into the same queue through the dead-letter exchange, so the x-death header
// counts delivery attempts.
func RetryArgs(routingKey string) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             RetryTTLMiliseconds,
		"x-dead-letter-exchange":    RegistrationsExchangeName,
		"x-dead-letter-routing-key": routingKey,
	}
}

// Publish publishes a persistent message to an exchange.
func (b *Broker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return b.Channel.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Body:         body,
		},
	)
}

// Consume consumes messages from a queue.
func (b *Broker) Consume(queueName string) (<-chan amqp.Delivery, error) {
	d, err := b.Channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	return d, nil
}
