package orders

import (
	"context"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
)

// Occupy moves t to occupied. Occupying an occupied table is a no-op.
func Occupy(ctx context.Context, st TableStore, t *Table) error {
	return moveTable(ctx, st, t, TableOccupied, "orders.Occupy")
}

// Release frees t once its pending order is settled, cancelled or emptied.
func Release(ctx context.Context, st TableStore, t *Table) error {
	return moveTable(ctx, st, t, TableFree, "orders.Release")
}

func moveTable(ctx context.Context, st TableStore, t *Table, to TableStatus, op string) error {
	if t.Status == to {
		return nil
	}
	if !CanTableTransition(t.Status, to) {
		return apperr.Conflict(op, "table %s cannot go from %s to %s", t.Name, t.Status, to)
	}
	if err := st.SetTableStatus(ctx, t.ID, to); err != nil {
		return apperr.Internal(op, err)
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// CheckAdminStatus validates a status set by a direct table edit. Occupied is
// owned by the order flow, and nothing may change while an order is open.
func CheckAdminStatus(t Table, to TableStatus, hasPending bool) error {
	const op = "orders.SetTableStatus"
	if to == t.Status {
		return nil
	}
	if to == TableOccupied {
		return apperr.Invalid(op, "occupied is set by adding items, not by edits")
	}
	if hasPending || t.Status == TableOccupied {
		return apperr.Conflict(op, "table %s has an open order", t.Name)
	}
	if !CanTableTransition(t.Status, to) {
		return apperr.Conflict(op, "table %s cannot go from %s to %s", t.Name, t.Status, to)
	}
	return nil
}
