package floor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/ariefcatur/go-table-orders/internal/orders"
	"go.uber.org/zap"
)

const defaultCapacity = 4

type TableInput struct {
	Name          string `json:"nome"`
	Capacity      int    `json:"capacidade"`
	Notes         string `json:"observacoes"`
	ResponsibleID *int64 `json:"responsavel_id"`
}

// TablePatch carries the fields of an admin edit; nil fields are left alone.
type TablePatch struct {
	Name          *string             `json:"nome"`
	Status        *orders.TableStatus `json:"status"`
	Capacity      *int                `json:"capacidade"`
	Notes         *string             `json:"observacoes"`
	ResponsibleID *int64              `json:"responsavel_id"`
}

func (s *Service) CreateTable(ctx context.Context, in TableInput) (orders.Table, error) {
	const op = "floor.CreateTable"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return orders.Table{}, apperr.Invalid(op, "name is required")
	}
	if in.Capacity == 0 {
		in.Capacity = defaultCapacity
	}
	if in.Capacity < 0 {
		return orders.Table{}, apperr.Invalid(op, "capacity must be > 0")
	}

	var t orders.Table
	err := s.DB.InTx(ctx, func(tx Tx) error {
		slug, err := orders.UniqueSlug(ctx, orders.Slugify(name), func(ctx context.Context, slug string) (bool, error) {
			return tx.SlugTaken(ctx, slug, 0)
		})
		if err != nil {
			return apperr.Internal(op, err)
		}
		now := time.Now().UTC()
		t = orders.Table{
			Name:          name,
			Slug:          slug,
			Status:        orders.TableFree,
			ResponsibleID: in.ResponsibleID,
			Capacity:      in.Capacity,
			Notes:         in.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertTable(ctx, &t); err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	if err != nil {
		return orders.Table{}, err
	}
	s.log().Info("table created", zap.Int64("table_id", t.ID), zap.String("slug", t.Slug))
	return t, nil
}

func (s *Service) UpdateTable(ctx context.Context, id int64, in TablePatch) (orders.Table, error) {
	const op = "floor.UpdateTable"
	var t orders.Table
	err := s.DB.InTx(ctx, func(tx Tx) error {
		var err error
		if t, err = lockTable(ctx, tx, op, id); err != nil {
			return err
		}
		if in.Status != nil {
			to, err := orders.ParseTableStatus(string(*in.Status))
			if err != nil {
				return apperr.Invalid(op, "%v", err)
			}
			pending, err := hasPending(ctx, tx, t.ID)
			if err != nil {
				return apperr.Internal(op, err)
			}
			if err := orders.CheckAdminStatus(t, to, pending); err != nil {
				return err
			}
			t.Status = to
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Invalid(op, "name must not be empty")
			}
			if name != t.Name {
				t.Name = name
				t.Slug, err = orders.UniqueSlug(ctx, orders.Slugify(name), func(ctx context.Context, slug string) (bool, error) {
					return tx.SlugTaken(ctx, slug, t.ID)
				})
				if err != nil {
					return apperr.Internal(op, err)
				}
			}
		}
		if in.Capacity != nil {
			if *in.Capacity <= 0 {
				return apperr.Invalid(op, "capacity must be > 0")
			}
			t.Capacity = *in.Capacity
		}
		if in.Notes != nil {
			t.Notes = *in.Notes
		}
		if in.ResponsibleID != nil {
			t.ResponsibleID = in.ResponsibleID
		}
		t.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateTable(ctx, &t); err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	if err != nil {
		return orders.Table{}, err
	}
	s.afterCommit(ctx, []int64{id}, nil)
	return t, nil
}

// DeleteTable removes a table with no order history.
func (s *Service) DeleteTable(ctx context.Context, id int64) error {
	const op = "floor.DeleteTable"
	err := s.DB.InTx(ctx, func(tx Tx) error {
		t, err := lockTable(ctx, tx, op, id)
		if err != nil {
			return err
		}
		pending, err := hasPending(ctx, tx, t.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		if pending || t.Status == orders.TableOccupied {
			return apperr.Conflict(op, "table %s has an open order", t.Name)
		}
		err = tx.DeleteTable(ctx, t.ID)
		if errors.Is(err, orders.ErrTableHasOrders) {
			return apperr.Conflict(op, "table %s has order history", t.Name)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, []int64{id}, nil)
	return nil
}

func (s *Service) ListTables(ctx context.Context) ([]orders.TableView, error) {
	const op = "floor.ListTables"
	var views []orders.TableView
	err := s.DB.InTx(ctx, func(tx Tx) error {
		ts, err := tx.ListTables(ctx)
		if err != nil {
			return apperr.Internal(op, err)
		}
		views = make([]orders.TableView, 0, len(ts))
		for _, t := range ts {
			v, err := s.view(ctx, tx, op, t)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

// GetTable serves from the view cache when it can and fills it on a miss.
func (s *Service) GetTable(ctx context.Context, id int64) (orders.TableView, error) {
	const op = "floor.GetTable"
	if s.Cache != nil {
		v, ok, err := s.Cache.GetTableView(ctx, id)
		if err != nil {
			s.log().Warn("table view cache read failed", zap.Int64("table_id", id), zap.Error(err))
		}
		if ok {
			return v, nil
		}
	}

	var v orders.TableView
	err := s.DB.InTx(ctx, func(tx Tx) error {
		t, err := tx.GetTable(ctx, id)
		if errors.Is(err, orders.ErrNotFound) {
			return apperr.NotFound(op, "table %d not found", id)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		v, err = s.view(ctx, tx, op, t)
		return err
	})
	if err != nil {
		return orders.TableView{}, err
	}
	if s.Cache != nil {
		if err := s.Cache.SetTableView(ctx, v); err != nil {
			s.log().Warn("table view cache write failed", zap.Int64("table_id", id), zap.Error(err))
		}
	}
	return v, nil
}

// GetTableBySlug matches the stored slug case-insensitively and falls back to
// slugifying table names, for rows created before slugs existed.
func (s *Service) GetTableBySlug(ctx context.Context, slug string) (orders.TableView, error) {
	const op = "floor.GetTableBySlug"
	var v orders.TableView
	err := s.DB.InTx(ctx, func(tx Tx) error {
		t, err := tx.GetTableBySlug(ctx, slug)
		if errors.Is(err, orders.ErrNotFound) {
			t, err = s.findBySlugifiedName(ctx, tx, slug)
		}
		if errors.Is(err, orders.ErrNotFound) {
			return apperr.NotFound(op, "table %q not found", slug)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		v, err = s.view(ctx, tx, op, t)
		return err
	})
	return v, err
}

func (s *Service) findBySlugifiedName(ctx context.Context, tx Tx, slug string) (orders.Table, error) {
	ts, err := tx.ListTables(ctx)
	if err != nil {
		return orders.Table{}, err
	}
	for _, t := range ts {
		if strings.EqualFold(orders.Slugify(t.Name), slug) {
			return t, nil
		}
	}
	return orders.Table{}, orders.ErrNotFound
}

// view builds t's view from its pending order. An occupied table without one
// is reported, not repaired; the next item added heals it.
func (s *Service) view(ctx context.Context, tx Tx, op string, t orders.Table) (orders.TableView, error) {
	o, err := tx.PendingOrder(ctx, t.ID)
	if errors.Is(err, orders.ErrNotFound) {
		if t.Status == orders.TableOccupied {
			s.log().Error("occupied table has no pending order", zap.Int64("table_id", t.ID), zap.String("table", t.Name))
		}
		return orders.NewTableView(t, nil, nil), nil
	}
	if err != nil {
		return orders.TableView{}, apperr.Internal(op, err)
	}
	items, err := tx.ListItems(ctx, o.ID)
	if err != nil {
		return orders.TableView{}, apperr.Internal(op, err)
	}
	return orders.NewTableView(t, &o, items), nil
}

func hasPending(ctx context.Context, tx Tx, tableID int64) (bool, error) {
	_, err := tx.PendingOrder(ctx, tableID)
	if errors.Is(err, orders.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
