package stock

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
)

var ErrProductNotFound = errors.New("product not found")

// Store is the slice of a storage transaction the ledger needs. LockStock
// must hold a row lock on the product until the transaction ends.
type Store interface {
	LockStock(ctx context.Context, productID int64) (int, error)
	SetStock(ctx context.Context, productID int64, onHand int) error
	InsertMovement(ctx context.Context, m *Movement) error
}

type Entry struct {
	ProductID int64
	Kind      Kind
	Source    Source
	Quantity  int // magnitude; signed only for ajuste
	ActorID   int64
	Note      string
	OrderID   *int64
}

type Ledger struct {
	Now func() time.Time
}

func (l Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

// Record appends one movement and moves the product's on-hand quantity with it.
func (l Ledger) Record(ctx context.Context, st Store, e Entry) (Movement, error) {
	const op = "stock.Record"
	if !e.Kind.Valid() {
		return Movement{}, apperr.Invalid(op, "unknown movement kind %q", e.Kind)
	}
	if !e.Source.Valid() {
		return Movement{}, apperr.Invalid(op, "unknown movement source %q", e.Source)
	}
	if e.Quantity == 0 {
		return Movement{}, apperr.Invalid(op, "quantity must not be zero")
	}
	if e.ActorID <= 0 {
		return Movement{}, apperr.Invalid(op, "actor is required")
	}

	current, err := st.LockStock(ctx, e.ProductID)
	if errors.Is(err, ErrProductNotFound) {
		return Movement{}, apperr.NotFound(op, "product %d not found", e.ProductID)
	}
	if err != nil {
		return Movement{}, apperr.Internal(op, err)
	}

	after, delta := Apply(current, e.Kind, e.Quantity)
	m := Movement{
		ProductID: e.ProductID,
		Kind:      e.Kind,
		Source:    e.Source,
		Delta:     delta,
		Before:    current,
		After:     after,
		ActorID:   e.ActorID,
		Note:      e.Note,
		OrderID:   e.OrderID,
		CreatedAt: l.now(),
	}
	if err := st.InsertMovement(ctx, &m); err != nil {
		return Movement{}, apperr.Internal(op, err)
	}
	if err := st.SetStock(ctx, e.ProductID, after); err != nil {
		return Movement{}, apperr.Internal(op, err)
	}
	return m, nil
}
