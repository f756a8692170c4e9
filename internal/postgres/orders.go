package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderCols = `id, number, table_id, server_id, status, total::text, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	var total string
	err := row.Scan(&o.ID, &o.Number, &o.TableID, &o.ServerID, (*string)(&o.Status), &total, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Order{}, err
	}
	o.Total, err = decimal.NewFromString(total)
	return o, err
}

func (t *Tx) MaxOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) FROM orders`).Scan(&n)
	return n, err
}

// InsertOrder runs in a savepoint so a lost number race leaves the caller's
// transaction usable for the retry.
func (t *Tx) InsertOrder(ctx context.Context, o *orders.Order) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	err = sp.QueryRow(ctx, `
		INSERT INTO orders(number, table_id, server_id, status, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
		RETURNING id`,
		o.Number, o.TableID, o.ServerID, string(o.Status), o.Total.String(), o.Notes, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		_ = sp.Rollback(ctx)
		code, constraint := pgCode(err)
		switch {
		case code == codeUniqueViolation && constraint == "orders_number_key":
			return orders.ErrNumberTaken
		case code == codeUniqueViolation && constraint == "orders_one_pending_per_table":
			return orders.ErrPendingExists
		}
		return err
	}
	return sp.Commit(ctx)
}

func (t *Tx) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

func (t *Tx) UpdateOrder(ctx context.Context, o *orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET status=$2, total=$3::numeric, notes=$4, updated_at=now()
		WHERE id=$1`, o.ID, string(o.Status), o.Total.String(), o.Notes)
	return err
}

func (t *Tx) PendingOrder(ctx context.Context, tableID int64) (orders.Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `
		SELECT `+orderCols+` FROM orders WHERE table_id=$1 AND status='pending'`, tableID))
}

func (t *Tx) LatestOrder(ctx context.Context, tableID int64) (orders.Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `
		SELECT `+orderCols+` FROM orders WHERE table_id=$1 ORDER BY id DESC LIMIT 1`, tableID))
}

const itemCols = `id, order_id, product_id, name, qty, unit_price::text, subtotal::text`

func scanItem(row pgx.Row) (orders.OrderItem, error) {
	var it orders.OrderItem
	var price, subtotal string
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty, &price, &subtotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.OrderItem{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.OrderItem{}, err
	}
	if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return orders.OrderItem{}, err
	}
	it.Subtotal, err = decimal.NewFromString(subtotal)
	return it, err
}

func (t *Tx) FindItem(ctx context.Context, orderID, productID int64) (orders.OrderItem, error) {
	return scanItem(t.tx.QueryRow(ctx, `
		SELECT `+itemCols+` FROM order_items WHERE order_id=$1 AND product_id=$2`, orderID, productID))
}

func (t *Tx) GetItem(ctx context.Context, id int64) (orders.OrderItem, error) {
	return scanItem(t.tx.QueryRow(ctx, `SELECT `+itemCols+` FROM order_items WHERE id=$1`, id))
}

func (t *Tx) InsertItem(ctx context.Context, it *orders.OrderItem) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, name, qty, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric)
		RETURNING id`,
		it.OrderID, it.ProductID, it.Name, it.Qty, it.UnitPrice.String(), it.Subtotal.String(),
	).Scan(&it.ID)
}

func (t *Tx) UpdateItem(ctx context.Context, it *orders.OrderItem) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE order_items SET qty=$2, subtotal=$3::numeric WHERE id=$1`,
		it.ID, it.Qty, it.Subtotal.String())
	return err
}

func (t *Tx) DeleteItem(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, id)
	return err
}

func (t *Tx) DeleteItems(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID)
	return err
}

func (t *Tx) ListItems(ctx context.Context, orderID int64) ([]orders.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+itemCols+` FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *Tx) InsertPayment(ctx context.Context, p *orders.Payment) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO payments(order_id, method, amount, received, change_due, discount, status, notes)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7, $8)
		RETURNING id, created_at`,
		p.OrderID, string(p.Method), p.Amount.String(), p.Received.String(), p.Change.String(),
		p.Discount.String(), string(p.Status), p.Notes,
	).Scan(&p.ID, &p.CreatedAt)
}

func (t *Tx) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	var p orders.Product
	var price string
	err := t.tx.QueryRow(ctx, `SELECT id, name, price::text, on_hand FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &price, &p.OnHand)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Product{}, err
	}
	p.Price, err = decimal.NewFromString(price)
	return p, err
}
