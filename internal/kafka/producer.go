package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer queues envelopes and writes them from one goroutine. The topic is
// chosen per message.
type Producer struct {
	w     *kafka.Writer
	inbox chan kafka.Message
	done  chan struct{}
	once  sync.Once
	log   *zap.Logger
}

func NewProducer(brokers []string, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Producer{
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
		log:   log,
	}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				p.log.Warn("kafka write failed", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return p
}

func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.Warn("kafka enqueue failed", zap.String("topic", m.Topic), zap.Error(err))
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("kafka writer close", zap.Error(err))
		}
	}()
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, env orders.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	m := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   b,
		Time:    time.Now(),
		Headers: Headers(env),
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for the queue to flush.
func (p *Producer) Close() {
	p.once.Do(func() { close(p.inbox) })
	<-p.done
}
