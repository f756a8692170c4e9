package inventory

import (
	"context"

	kafkax "github.com/ariefcatur/go-table-orders/internal/kafka"
	"github.com/ariefcatur/go-table-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Projection is where the consumer keeps on-hand figures and the event ids it
// already handled.
type Projection interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
	SetOnHand(ctx context.Context, productID, movementID int64, onHand int) (bool, error)
}

// Service follows stock.movement.recorded and projects on_hand per product.
type Service struct {
	Store    Projection
	LowStock int // warn at or below this level; 0 disables
	Log      *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// HandleMessage is the kafka consumer handler.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	return s.Handle(ctx, m.Value)
}

// Handle processes one envelope. Undecodable or foreign events are dropped;
// only projection store failures are returned so the message is retried.
func (s *Service) Handle(ctx context.Context, body []byte) error {
	// 1) decode envelope
	env, err := kafkax.DecodeEnvelope(body)
	if err != nil {
		s.log().Warn("dropping undecodable message", zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventStockMovement {
		return nil
	}

	// 2) dedup on event id
	seen, err := s.Store.Seen(ctx, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	// 3) payload
	p, err := kafkax.UnwrapPayload[orders.StockMovementPayload](env.Payload)
	if err != nil {
		s.log().Warn("dropping bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	// 4) project; older movements never overwrite newer ones
	applied, err := s.Store.SetOnHand(ctx, p.ProductID, p.MovementID, p.After)
	if err != nil {
		return err
	}
	if applied && s.LowStock > 0 && p.After <= s.LowStock {
		s.log().Warn("low stock",
			zap.Int64("product_id", p.ProductID),
			zap.Int("on_hand", p.After),
			zap.String("kind", p.Kind),
			zap.Int("threshold", s.LowStock))
	}
	return s.Store.MarkSeen(ctx, env.EventID)
}
