package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, body []byte) error

// Consume binds queue to routingKey on the bus exchange and feeds deliveries
// to h until ctx ends, reconnecting the channel when it drops. A handler error
// requeues the delivery.
func (b *Bus) Consume(ctx context.Context, queue, routingKey string, prefetch int, h Handler, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	for {
		err := b.consumeOnce(ctx, queue, routingKey, prefetch, h, log)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("consumer disconnected, reconnecting", zap.String("queue", queue), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

func (b *Bus) consumeOnce(ctx context.Context, queue, routingKey string, prefetch int, h Handler, log *zap.Logger) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, routingKey, b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-closed:
			return fmt.Errorf("channel closed: %v", err)
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			if err := h(ctx, d.Body); err != nil {
				log.Warn("handler failed, requeueing", zap.String("queue", queue), zap.Uint64("tag", d.DeliveryTag), zap.Error(err))
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
