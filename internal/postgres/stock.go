package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-table-orders/internal/stock"
	"github.com/jackc/pgx/v5"
)

// LockStock reads on_hand with FOR UPDATE; concurrent movements on one
// product queue here.
func (t *Tx) LockStock(ctx context.Context, productID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT on_hand FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, stock.ErrProductNotFound
	}
	return n, err
}

func (t *Tx) SetStock(ctx context.Context, productID int64, onHand int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET on_hand=$2, updated_at=now() WHERE id=$1`, productID, onHand)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return stock.ErrProductNotFound
	}
	return nil
}

func (t *Tx) InsertMovement(ctx context.Context, m *stock.Movement) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements(product_id, kind, source, delta, quantity_before, quantity_after, actor_id, note, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		m.ProductID, string(m.Kind), string(m.Source), m.Delta, m.Before, m.After, m.ActorID, m.Note, m.OrderID, m.CreatedAt,
	).Scan(&m.ID)
}

func (t *Tx) ListMovements(ctx context.Context, f stock.Filter) ([]stock.Movement, error) {
	var where []string
	var args []any
	if f.ProductID != 0 {
		args = append(args, f.ProductID)
		where = append(where, fmt.Sprintf("product_id=$%d", len(args)))
	}
	if f.OrderID != 0 {
		args = append(args, f.OrderID)
		where = append(where, fmt.Sprintf("order_id=$%d", len(args)))
	}

	q := `SELECT id, product_id, kind, source, delta, quantity_before, quantity_after, actor_id, note, order_id, created_at
	      FROM stock_movements`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Newest {
		q += ` ORDER BY id DESC`
	} else {
		q += ` ORDER BY id`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := t.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stock.Movement
	for rows.Next() {
		var m stock.Movement
		if err := rows.Scan(&m.ID, &m.ProductID, (*string)(&m.Kind), (*string)(&m.Source), &m.Delta, &m.Before, &m.After,
			&m.ActorID, &m.Note, &m.OrderID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
