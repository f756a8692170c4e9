package floor

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/ariefcatur/go-table-orders/internal/stock"
)

const maxMovementPage = 500

// RecordStockMovement is the manual entry point into the ledger (purchases,
// counts, online sales). Unlike the workflow movements it fails loudly.
func (s *Service) RecordStockMovement(ctx context.Context, e stock.Entry) (stock.Movement, error) {
	var m stock.Movement
	err := s.DB.InTx(ctx, func(tx Tx) error {
		var err error
		m, err = s.Ledger.Record(ctx, tx, e)
		return err
	})
	if err != nil {
		return stock.Movement{}, err
	}
	s.afterCommit(ctx, nil, []event{movementEvent(m)})
	return m, nil
}

// ListMovements returns the newest movements first, optionally for one product.
func (s *Service) ListMovements(ctx context.Context, productID int64, limit int) ([]stock.Movement, error) {
	const op = "floor.ListMovements"
	if limit <= 0 || limit > maxMovementPage {
		limit = maxMovementPage
	}
	var ms []stock.Movement
	err := s.DB.InTx(ctx, func(tx Tx) error {
		var err error
		ms, err = tx.ListMovements(ctx, stock.Filter{ProductID: productID, Limit: limit, Newest: true})
		if err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	return ms, err
}

// AuditStock replays a product's whole ledger against its on_hand.
func (s *Service) AuditStock(ctx context.Context, productID int64) (stock.AuditReport, error) {
	const op = "floor.AuditStock"
	var r stock.AuditReport
	err := s.DB.InTx(ctx, func(tx Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if errors.Is(err, orders.ErrNotFound) {
			return apperr.NotFound(op, "product %d not found", productID)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		ms, err := tx.ListMovements(ctx, stock.Filter{ProductID: productID})
		if err != nil {
			return apperr.Internal(op, err)
		}
		r = stock.Audit(p.ID, p.OnHand, ms)
		return nil
	})
	return r, err
}
