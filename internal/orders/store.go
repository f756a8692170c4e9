package orders

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by stores when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrNumberTaken reports a unique violation on the order number.
	ErrNumberTaken = errors.New("order number already taken")

	// ErrPendingExists reports a second pending order for the same table.
	ErrPendingExists = errors.New("table already has a pending order")

	// ErrTableHasOrders reports a table delete blocked by its order history.
	ErrTableHasOrders = errors.New("table is referenced by orders")
)

type NumberStore interface {
	MaxOrderNumber(ctx context.Context) (int64, error)
	// InsertOrder sets o.ID; a failed insert must leave the transaction usable.
	InsertOrder(ctx context.Context, o *Order) error
}

type ItemStore interface {
	GetOrder(ctx context.Context, id int64) (Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
	FindItem(ctx context.Context, orderID, productID int64) (OrderItem, error)
	GetItem(ctx context.Context, id int64) (OrderItem, error)
	InsertItem(ctx context.Context, it *OrderItem) error
	UpdateItem(ctx context.Context, it *OrderItem) error
	DeleteItem(ctx context.Context, id int64) error
	ListItems(ctx context.Context, orderID int64) ([]OrderItem, error)
}

type TableStore interface {
	// LockTable reads the table holding a row lock until the transaction ends.
	LockTable(ctx context.Context, id int64) (Table, error)
	SetTableStatus(ctx context.Context, id int64, s TableStatus) error
	PendingOrder(ctx context.Context, tableID int64) (Order, error)
}

type Store interface {
	NumberStore
	ItemStore
	TableStore
}
