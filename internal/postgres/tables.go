package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/jackc/pgx/v5"
)

const tableCols = `id, name, slug, status, responsible_id, capacity, notes, created_at, updated_at`

func scanTable(row pgx.Row) (orders.Table, error) {
	var t orders.Table
	err := row.Scan(&t.ID, &t.Name, &t.Slug, (*string)(&t.Status), &t.ResponsibleID, &t.Capacity, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Table{}, orders.ErrNotFound
	}
	return t, err
}

// LockTable takes the row lock every table workflow serializes on.
func (t *Tx) LockTable(ctx context.Context, id int64) (orders.Table, error) {
	return scanTable(t.tx.QueryRow(ctx, `SELECT `+tableCols+` FROM tables WHERE id=$1 FOR UPDATE`, id))
}

func (t *Tx) GetTable(ctx context.Context, id int64) (orders.Table, error) {
	return scanTable(t.tx.QueryRow(ctx, `SELECT `+tableCols+` FROM tables WHERE id=$1`, id))
}

func (t *Tx) GetTableBySlug(ctx context.Context, slug string) (orders.Table, error) {
	return scanTable(t.tx.QueryRow(ctx, `SELECT `+tableCols+` FROM tables WHERE lower(slug)=lower($1)`, slug))
}

func (t *Tx) SetTableStatus(ctx context.Context, id int64, s orders.TableStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE tables SET status=$2, updated_at=now() WHERE id=$1`, id, string(s))
	return err
}

func (t *Tx) ListTables(ctx context.Context) ([]orders.Table, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+tableCols+` FROM tables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Table
	for rows.Next() {
		tbl, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tbl)
	}
	return out, rows.Err()
}

func (t *Tx) InsertTable(ctx context.Context, tbl *orders.Table) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO tables(name, slug, status, responsible_id, capacity, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		tbl.Name, tbl.Slug, string(tbl.Status), tbl.ResponsibleID, tbl.Capacity, tbl.Notes, tbl.CreatedAt, tbl.UpdatedAt,
	).Scan(&tbl.ID)
}

func (t *Tx) UpdateTable(ctx context.Context, tbl *orders.Table) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE tables
		SET name=$2, slug=$3, status=$4, responsible_id=$5, capacity=$6, notes=$7, updated_at=$8
		WHERE id=$1`,
		tbl.ID, tbl.Name, tbl.Slug, string(tbl.Status), tbl.ResponsibleID, tbl.Capacity, tbl.Notes, tbl.UpdatedAt)
	return err
}

func (t *Tx) DeleteTable(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM tables WHERE id=$1`, id)
	if code, _ := pgCode(err); code == codeForeignKeyViolation {
		return orders.ErrTableHasOrders
	}
	return err
}

func (t *Tx) SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM tables WHERE lower(slug)=lower($1) AND id<>$2)`, slug, exceptID).Scan(&taken)
	return taken, err
}
