package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/ariefcatur/go-table-orders/internal/floor"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Store is the pgx-backed unit of work behind the floor service.
type Store struct{ DB *pgxpool.Pool }

var (
	_ floor.UnitOfWork = (*Store)(nil)
	_ floor.Tx         = (*Tx)(nil)
)

func (s *Store) InTx(ctx context.Context, fn func(tx floor.Tx) error) error {
	const op = "postgres.InTx"
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Internal(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(op, err)
	}
	return nil
}

// Tx wraps one pgx transaction (or savepoint). Row locks taken through it are
// held until the outermost transaction ends.
type Tx struct{ tx pgx.Tx }

func (t *Tx) Nested(ctx context.Context, fn func(tx floor.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(&Tx{tx: sp}); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func pgCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)
