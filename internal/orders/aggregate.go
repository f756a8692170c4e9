package orders

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/shopspring/decimal"
)

// Line is one addition requested for an order.
type Line struct {
	ProductID int64
	Name      string
	Qty       int
	UnitPrice decimal.Decimal
}

// Subtotal is quantity times unit price, exact in decimal.
func Subtotal(qty int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// Sum adds the subtotals of items.
func Sum(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

// GetOrCreatePending returns the table's pending order, creating one through
// the allocator and occupying the table when none exists.
func GetOrCreatePending(ctx context.Context, st Store, alloc Allocator, t *Table, actorID, suggested int64) (Order, bool, error) {
	const op = "orders.GetOrCreatePending"
	o, err := st.PendingOrder(ctx, t.ID)
	if err == nil {
		return o, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Order{}, false, apperr.Internal(op, err)
	}
	if actorID <= 0 {
		return Order{}, false, apperr.Invalid(op, "server id is required to open an order")
	}

	now := time.Now().UTC()
	o = Order{
		TableID:   t.ID,
		ServerID:  actorID,
		Status:    StatusPending,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := alloc.Create(ctx, st, &o, suggested); err != nil {
		return Order{}, false, err
	}
	if err := Occupy(ctx, st, t); err != nil {
		return Order{}, false, err
	}
	return o, true, nil
}

// AddItem merges ln into o: an existing line for the product grows by ln.Qty
// (negative shrinks it), otherwise a new line is inserted with the given price
// snapshot. The order total is recomputed from storage afterwards.
func AddItem(ctx context.Context, st ItemStore, o *Order, ln Line) (OrderItem, error) {
	const op = "orders.AddItem"
	if o.Status != StatusPending {
		return OrderItem{}, apperr.Conflict(op, "order %d is %s", o.Number, o.Status)
	}
	if ln.UnitPrice.IsNegative() {
		return OrderItem{}, apperr.Invalid(op, "unit price must not be negative")
	}

	it, err := st.FindItem(ctx, o.ID, ln.ProductID)
	switch {
	case err == nil:
		qty := it.Qty + ln.Qty
		if qty <= 0 {
			return OrderItem{}, apperr.Invalid(op, "resulting quantity must be > 0, got %d", qty)
		}
		it.Qty = qty
		it.Subtotal = Subtotal(it.Qty, it.UnitPrice)
		if err := st.UpdateItem(ctx, &it); err != nil {
			return OrderItem{}, apperr.Internal(op, err)
		}
	case errors.Is(err, ErrNotFound):
		if ln.Qty <= 0 {
			return OrderItem{}, apperr.Invalid(op, "quantity must be > 0, got %d", ln.Qty)
		}
		price := ln.UnitPrice.Round(2)
		it = OrderItem{
			OrderID:   o.ID,
			ProductID: ln.ProductID,
			Name:      ln.Name,
			Qty:       ln.Qty,
			UnitPrice: price,
			Subtotal:  Subtotal(ln.Qty, price),
		}
		if err := st.InsertItem(ctx, &it); err != nil {
			return OrderItem{}, apperr.Internal(op, err)
		}
	default:
		return OrderItem{}, apperr.Internal(op, err)
	}

	if err := Recompute(ctx, st, o); err != nil {
		return OrderItem{}, err
	}
	return it, nil
}

// RemoveItem deletes the line and recomputes the parent order's total.
func RemoveItem(ctx context.Context, st ItemStore, itemID int64) (Order, OrderItem, error) {
	const op = "orders.RemoveItem"
	it, err := st.GetItem(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return Order{}, OrderItem{}, apperr.NotFound(op, "item %d not found", itemID)
	}
	if err != nil {
		return Order{}, OrderItem{}, apperr.Internal(op, err)
	}
	o, err := st.GetOrder(ctx, it.OrderID)
	if err != nil {
		return Order{}, OrderItem{}, apperr.Internal(op, err)
	}
	if o.Status != StatusPending {
		return Order{}, OrderItem{}, apperr.Conflict(op, "order %d is %s", o.Number, o.Status)
	}
	if err := st.DeleteItem(ctx, it.ID); err != nil {
		return Order{}, OrderItem{}, apperr.Internal(op, err)
	}
	if err := Recompute(ctx, st, &o); err != nil {
		return Order{}, OrderItem{}, err
	}
	return o, it, nil
}

// Recompute sets o.Total to the sum of its live item subtotals and saves it.
func Recompute(ctx context.Context, st ItemStore, o *Order) error {
	const op = "orders.Recompute"
	items, err := st.ListItems(ctx, o.ID)
	if err != nil {
		return apperr.Internal(op, err)
	}
	o.Total = Sum(items)
	o.UpdatedAt = time.Now().UTC()
	if err := st.UpdateOrder(ctx, o); err != nil {
		return apperr.Internal(op, err)
	}
	return nil
}
