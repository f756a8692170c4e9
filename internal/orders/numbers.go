package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"go.uber.org/zap"
)

const DefaultNumberAttempts = 5

// Allocator hands out ticket numbers as max(number)+1. Uniqueness is enforced
// by the storage constraint; a lost race is retried against the latest
// committed maximum.
type Allocator struct {
	MaxAttempts int
	Log         *zap.Logger
}

func (a Allocator) attempts() int {
	if a.MaxAttempts <= 0 {
		return DefaultNumberAttempts
	}
	return a.MaxAttempts
}

func (a Allocator) log() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

// Create inserts o with a fresh number. A positive suggested number is tried
// first; on conflict the allocator falls back to max+1.
func (a Allocator) Create(ctx context.Context, st NumberStore, o *Order, suggested int64) error {
	const op = "orders.Allocate"
	number := suggested
	if number <= 0 {
		max, err := st.MaxOrderNumber(ctx)
		if err != nil {
			return apperr.Internal(op, err)
		}
		number = max + 1
	}

	for attempt := 1; attempt <= a.attempts(); attempt++ {
		o.Number = number
		err := st.InsertOrder(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNumberTaken) {
			if errors.Is(err, ErrPendingExists) {
				return apperr.Conflict(op, "table %d already has a pending order", o.TableID)
			}
			return apperr.Internal(op, err)
		}
		a.log().Warn("order number taken, retrying",
			zap.Int64("number", number),
			zap.Int("attempt", attempt),
			zap.Int64("table_id", o.TableID),
		)
		max, err := st.MaxOrderNumber(ctx)
		if err != nil {
			return apperr.Internal(op, err)
		}
		number = max + 1
	}
	o.Number = 0
	return apperr.Conflict(op, "could not allocate an order number after %d attempts", a.attempts())
}
