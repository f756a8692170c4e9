package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Bus publishes envelopes to one durable topic exchange; the routing key is
// the event topic.
type Bus struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

func Dial(url, exchange string) (*Bus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	b := &Bus{conn: conn, exchange: exchange}
	if _, err := b.channel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return b, nil
}

// channel returns the publishing channel, reopening it after a close.
func (b *Bus) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil && !b.ch.IsClosed() {
		return b.ch, nil
	}
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	b.ch = ch
	return ch, nil
}

func (b *Bus) Publish(ctx context.Context, topic string, key []byte, env orders.Envelope) error {
	ch, err := b.channel()
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	err = ch.PublishWithContext(ctx, b.exchange, topic, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     env.EventID,
		CorrelationId: string(key),
		Timestamp:     env.OccurredAt,
		Headers: amqp.Table{
			orders.HeaderEventType:    env.EventType,
			orders.HeaderEventVersion: int32(env.EventVersion),
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	if b.ch != nil {
		_ = b.ch.Close()
	}
	b.mu.Unlock()
	return b.conn.Close()
}
