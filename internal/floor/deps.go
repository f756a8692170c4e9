package floor

import (
	"context"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/ariefcatur/go-table-orders/internal/stock"
)

// Tx is one storage transaction as seen by the workflows.
type Tx interface {
	orders.Store
	stock.Store

	// Nested runs fn in a savepoint; an error rolls back only what fn did.
	Nested(ctx context.Context, fn func(tx Tx) error) error

	GetProduct(ctx context.Context, id int64) (orders.Product, error)
	LatestOrder(ctx context.Context, tableID int64) (orders.Order, error)
	DeleteItems(ctx context.Context, orderID int64) error
	InsertPayment(ctx context.Context, p *orders.Payment) error
	ListMovements(ctx context.Context, f stock.Filter) ([]stock.Movement, error)

	GetTable(ctx context.Context, id int64) (orders.Table, error)
	GetTableBySlug(ctx context.Context, slug string) (orders.Table, error)
	ListTables(ctx context.Context) ([]orders.Table, error)
	InsertTable(ctx context.Context, t *orders.Table) error
	UpdateTable(ctx context.Context, t *orders.Table) error
	DeleteTable(ctx context.Context, id int64) error
	SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error)
}

type UnitOfWork interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Publisher ships committed domain events; implemented by the kafka and
// rabbitmq adapters.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, env orders.Envelope) error
}

// ViewCache is a read-through cache of table views. Every committed mutation
// of a table invalidates its entry.
type ViewCache interface {
	GetTableView(ctx context.Context, tableID int64) (orders.TableView, bool, error)
	SetTableView(ctx context.Context, v orders.TableView) error
	InvalidateTable(ctx context.Context, tableID int64) error
}
