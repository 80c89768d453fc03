package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ relays envelopes through a fanout exchange. Each instance
// consumes from its own auto-deleted queue bound to the exchange.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second
)

// NewRabbitMQWithRetry keeps dialing with exponential backoff until it
// connects or ctx is done. Brokers started alongside the server usually
// take a few seconds to accept connections.
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	delay := initialRetryDelay
	for attempt := 1; ; attempt++ {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}

		slog.Warn("rabbitmq not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("giving up on rabbitmq after %d attempts: %w", attempt, err)
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		UpdatesTopic, // name
		"fanout",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare updates exchange: %w", err)
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

func (r *RabbitMQ) Name() string {
	return "rabbitmq"
}

func (r *RabbitMQ) Publish(ctx context.Context, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		UpdatesTopic,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Transient,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Subscribe(ctx context.Context, handler func(*Envelope)) error {
	queue, err := r.channel.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare relay queue: %w", err)
	}

	if err := r.channel.QueueBind(
		queue.Name,   // queue name
		"",           // routing key
		UpdatesTopic, // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind relay queue: %w", err)
	}

	msgs, err := r.channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming chat updates",
		slog.String("queue", queue.Name),
		slog.String("exchange", UpdatesTopic))

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping relay consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("relay consumer channel closed")
					return
				}
				if env, ok := decodeEnvelope(r.Name(), msg.Body); ok {
					handler(env)
				}
			}
		}
	}()

	return nil
}

func (r *RabbitMQ) Ping(_ context.Context) error {
	if r.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
