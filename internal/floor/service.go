package floor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/ariefcatur/go-table-orders/internal/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service runs the table workflows. Each call is one transaction; events and
// cache invalidation happen only after commit.
type Service struct {
	DB      UnitOfWork
	Ledger  stock.Ledger
	Numbers orders.Allocator
	Events  Publisher // optional
	Cache   ViewCache // optional
	Log     *zap.Logger

	ServiceName string
	// ReserveOnAdd holds stock out of on_hand as items are added.
	ReserveOnAdd bool
}

type AddItemInput struct {
	TableID   int64
	ProductID int64
	Qty       int
	// UnitPrice overrides the catalog price when set.
	UnitPrice       *decimal.Decimal
	ActorID         int64
	SuggestedNumber int64
}

type AddItemResult struct {
	TableID     int64              `json:"table_id"`
	TableStatus orders.TableStatus `json:"table_status"`
	OrderID     int64              `json:"order_id"`
	OrderNumber int64              `json:"order_number"`
	ItemID      int64              `json:"item_id"`
	ItemQty     int                `json:"item_qty"`
	OrderTotal  decimal.Decimal    `json:"order_total"`
}

type RemoveItemResult struct {
	TableID     int64              `json:"table_id"`
	TableStatus orders.TableStatus `json:"table_status"`
	OrderID     int64              `json:"order_id"`
	OrderTotal  decimal.Decimal    `json:"order_total"`
}

// PaidLine is one sold product; quantities are not checked against the order.
type PaidLine struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type PayInput struct {
	TableID int64
	Method  orders.PaymentMethod
	// Lines defaults to the order's items.
	Lines []PaidLine
	// Total defaults to the order total when zero.
	Total    decimal.Decimal
	Received *decimal.Decimal
	Discount decimal.Decimal
	ActorID  int64
	Notes    string
}

type event struct {
	topic   string
	key     int64
	typ     string
	payload any
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) AddItem(ctx context.Context, in AddItemInput) (AddItemResult, error) {
	const op = "floor.AddItem"
	if in.Qty == 0 {
		return AddItemResult{}, apperr.Invalid(op, "quantity must not be zero")
	}

	var res AddItemResult
	var evs []event
	err := s.DB.InTx(ctx, func(tx Tx) error {
		// 1) lock the table; everything below is serialized per table
		t, err := lockTable(ctx, tx, op, in.TableID)
		if err != nil {
			return err
		}
		if t.Status == orders.TableMaintenance {
			return apperr.Conflict(op, "table %s is under maintenance", t.Name)
		}
		p, err := tx.GetProduct(ctx, in.ProductID)
		if errors.Is(err, orders.ErrNotFound) {
			return apperr.NotFound(op, "product %d not found", in.ProductID)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		price := p.Price
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}

		// 2) pending order, opened (and the table occupied) on first item
		o, created, err := orders.GetOrCreatePending(ctx, tx, s.Numbers, &t, in.ActorID, in.SuggestedNumber)
		if err != nil {
			return err
		}
		if !created && t.Status != orders.TableOccupied {
			s.log().Warn("pending order on unoccupied table",
				zap.Int64("table_id", t.ID), zap.String("status", string(t.Status)), zap.Int64("order_id", o.ID))
			if err := orders.Occupy(ctx, tx, &t); err != nil {
				return err
			}
		}

		// 3) merge the line and recompute the total
		it, err := orders.AddItem(ctx, tx, &o, orders.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Qty:       in.Qty,
			UnitPrice: price,
		})
		if err != nil {
			return err
		}

		// 4) reservation, best-effort
		if s.ReserveOnAdd {
			s.reserve(ctx, tx, &evs, o, in.ProductID, in.Qty, in.ActorID)
		}

		res = AddItemResult{
			TableID:     t.ID,
			TableStatus: t.Status,
			OrderID:     o.ID,
			OrderNumber: o.Number,
			ItemID:      it.ID,
			ItemQty:     it.Qty,
			OrderTotal:  o.Total,
		}
		evs = append(evs, event{orders.TopicItemAdded, t.ID, orders.EventItemAdded, orders.ItemAddedPayload{
			TableID:     t.ID,
			OrderID:     o.ID,
			OrderNumber: o.Number,
			ItemID:      it.ID,
			ProductID:   it.ProductID,
			Qty:         in.Qty,
			ItemQty:     it.Qty,
			OrderTotal:  o.Total.StringFixed(2),
			OpenedOrder: created,
		}})
		return nil
	})
	if err != nil {
		return AddItemResult{}, err
	}
	s.afterCommit(ctx, []int64{in.TableID}, evs)
	return res, nil
}

// reserve holds qty of the product for the order, or gives back |qty| of what
// the order holds when the line shrinks.
func (s *Service) reserve(ctx context.Context, tx Tx, evs *[]event, o orders.Order, productID int64, qty int, actorID int64) {
	e := stock.Entry{
		ProductID: productID,
		Kind:      stock.KindReserve,
		Source:    stock.SourceTableReserv,
		Quantity:  qty,
		ActorID:   actorID,
		Note:      fmt.Sprintf("Pedido %d", o.Number),
		OrderID:   &o.ID,
	}
	if qty < 0 {
		held, ok := s.outstanding(ctx, tx, o.ID)
		if !ok {
			return
		}
		release := -qty
		if held[productID] < release {
			release = held[productID]
		}
		if release == 0 {
			return
		}
		e.Kind, e.Quantity = stock.KindReserveCancel, release
	}
	s.tryRecord(ctx, tx, evs, e)
}

func (s *Service) RemoveItem(ctx context.Context, itemID, actorID int64) (RemoveItemResult, error) {
	const op = "floor.RemoveItem"
	var res RemoveItemResult
	var evs []event
	err := s.DB.InTx(ctx, func(tx Tx) error {
		it, err := tx.GetItem(ctx, itemID)
		if errors.Is(err, orders.ErrNotFound) {
			return apperr.NotFound(op, "item %d not found", itemID)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		parent, err := tx.GetOrder(ctx, it.OrderID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		t, err := lockTable(ctx, tx, op, parent.TableID)
		if err != nil {
			return err
		}

		o, removed, err := orders.RemoveItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if actorID <= 0 {
			actorID = o.ServerID
		}

		// give back what the order still holds for this product
		if held, ok := s.outstanding(ctx, tx, o.ID); ok && held[removed.ProductID] > 0 {
			s.tryRecord(ctx, tx, &evs, stock.Entry{
				ProductID: removed.ProductID,
				Kind:      stock.KindReserveCancel,
				Source:    stock.SourceTableReserv,
				Quantity:  held[removed.ProductID],
				ActorID:   actorID,
				Note:      fmt.Sprintf("Item removido do pedido %d", o.Number),
				OrderID:   &o.ID,
			})
		}

		// an emptied order is closed and the table freed
		left, err := tx.ListItems(ctx, o.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		released := false
		if len(left) == 0 {
			o.Status = orders.StatusCancelled
			o.Total = decimal.Zero
			if err := tx.UpdateOrder(ctx, &o); err != nil {
				return apperr.Internal(op, err)
			}
			if err := orders.Release(ctx, tx, &t); err != nil {
				return err
			}
			released = true
		}

		res = RemoveItemResult{TableID: t.ID, TableStatus: t.Status, OrderID: o.ID, OrderTotal: o.Total}
		evs = append(evs, event{orders.TopicItemRemoved, t.ID, orders.EventItemRemoved, orders.ItemRemovedPayload{
			TableID:    t.ID,
			OrderID:    o.ID,
			ItemID:     removed.ID,
			ProductID:  removed.ProductID,
			OrderTotal: o.Total.StringFixed(2),
			Released:   released,
		}})
		return nil
	})
	if err != nil {
		return RemoveItemResult{}, err
	}
	s.afterCommit(ctx, []int64{res.TableID}, evs)
	return res, nil
}

func (s *Service) Pay(ctx context.Context, in PayInput) (orders.TableView, error) {
	const op = "floor.Pay"
	if _, err := orders.ParsePaymentMethod(string(in.Method)); err != nil {
		return orders.TableView{}, apperr.Invalid(op, "%v", err)
	}
	if in.Total.IsNegative() || in.Discount.IsNegative() {
		return orders.TableView{}, apperr.Invalid(op, "amounts must not be negative")
	}
	for _, ln := range in.Lines {
		if ln.Qty <= 0 {
			return orders.TableView{}, apperr.Invalid(op, "line for product %d: quantity must be > 0", ln.ProductID)
		}
	}

	var view orders.TableView
	var evs []event
	err := s.DB.InTx(ctx, func(tx Tx) error {
		t, err := lockTable(ctx, tx, op, in.TableID)
		if err != nil {
			return err
		}
		o, err := tx.PendingOrder(ctx, t.ID)
		if errors.Is(err, orders.ErrNotFound) {
			return apperr.NotFound(op, "table %s has no pending order", t.Name)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		items, err := tx.ListItems(ctx, o.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		lines := in.Lines
		if len(lines) == 0 {
			for _, it := range items {
				lines = append(lines, PaidLine{ProductID: it.ProductID, Qty: it.Qty})
			}
		}
		actor := in.ActorID
		if actor <= 0 {
			actor = o.ServerID
		}

		// 1) reservations become sales: release what the order holds first
		if held, ok := s.outstanding(ctx, tx, o.ID); ok {
			for _, pid := range sortedKeys(held) {
				s.tryRecord(ctx, tx, &evs, stock.Entry{
					ProductID: pid,
					Kind:      stock.KindReserveCancel,
					Source:    stock.SourceTableReserv,
					Quantity:  held[pid],
					ActorID:   actor,
					Note:      fmt.Sprintf("Pagamento pedido %d", o.Number),
					OrderID:   &o.ID,
				})
			}
		}

		// 2) one sale per paid line, best-effort
		skipped := 0
		for _, ln := range lines {
			ok := s.tryRecord(ctx, tx, &evs, stock.Entry{
				ProductID: ln.ProductID,
				Kind:      stock.KindOut,
				Source:    stock.SourceStoreSale,
				Quantity:  ln.Qty,
				ActorID:   actor,
				Note:      fmt.Sprintf("Venda mesa %s pedido %d", t.Name, o.Number),
				OrderID:   &o.ID,
			})
			if !ok {
				skipped++
			}
		}

		// 3) payment record
		amount := in.Total
		if amount.IsZero() {
			amount = o.Total
		}
		received := amount
		if in.Received != nil {
			received = *in.Received
		}
		change := decimal.Zero
		if in.Method == orders.PayCash {
			if received.LessThan(amount) {
				return apperr.Invalid(op, "received %s is less than %s", received.StringFixed(2), amount.StringFixed(2))
			}
			change = received.Sub(amount)
		}
		pay := orders.Payment{
			OrderID:  o.ID,
			Method:   in.Method,
			Amount:   amount,
			Received: received,
			Change:   change,
			Discount: in.Discount,
			Status:   orders.PaymentApproved,
			Notes:    in.Notes,
		}
		if err := tx.InsertPayment(ctx, &pay); err != nil {
			return apperr.Internal(op, err)
		}

		// 4) close the order and free the table
		o.Status = orders.StatusDelivered
		o.Total = amount
		if err := tx.UpdateOrder(ctx, &o); err != nil {
			return apperr.Internal(op, err)
		}
		if err := orders.Release(ctx, tx, &t); err != nil {
			return err
		}

		view = orders.NewTableView(t, nil, nil)
		evs = append(evs, event{orders.TopicTablePaid, t.ID, orders.EventTablePaid, orders.TablePaidPayload{
			TableID:      t.ID,
			OrderID:      o.ID,
			OrderNumber:  o.Number,
			Method:       string(in.Method),
			Amount:       amount.StringFixed(2),
			Change:       change.StringFixed(2),
			SkippedLines: skipped,
		}})
		return nil
	})
	if err != nil {
		return orders.TableView{}, err
	}
	s.afterCommit(ctx, []int64{in.TableID}, evs)
	return view, nil
}

// Cancel voids the table's most recent order whatever its status. Stock held
// by a pending order is given back line by line.
func (s *Service) Cancel(ctx context.Context, tableID int64) (orders.TableView, error) {
	const op = "floor.Cancel"
	var view orders.TableView
	var evs []event
	err := s.DB.InTx(ctx, func(tx Tx) error {
		t, err := lockTable(ctx, tx, op, tableID)
		if err != nil {
			return err
		}
		o, err := tx.LatestOrder(ctx, t.ID)
		if errors.Is(err, orders.ErrNotFound) {
			return apperr.NotFound(op, "table %s has no order", t.Name)
		}
		if err != nil {
			return apperr.Internal(op, err)
		}
		items, err := tx.ListItems(ctx, o.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}

		prev := o.Status
		restored, skipped := 0, 0
		if prev == orders.StatusPending {
			held, _ := s.outstanding(ctx, tx, o.ID)
			for _, it := range items {
				if held[it.ProductID] == 0 {
					continue
				}
				q := held[it.ProductID]
				delete(held, it.ProductID)
				ok := s.tryRecord(ctx, tx, &evs, stock.Entry{
					ProductID: it.ProductID,
					Kind:      stock.KindReserveCancel,
					Source:    stock.SourceTableReserv,
					Quantity:  q,
					ActorID:   o.ServerID,
					Note:      fmt.Sprintf("Cancelamento pedido %d", o.Number),
					OrderID:   &o.ID,
				})
				if ok {
					restored++
				} else {
					skipped++
				}
			}
		}

		if err := tx.DeleteItems(ctx, o.ID); err != nil {
			return apperr.Internal(op, err)
		}
		o.Status = orders.StatusCancelled
		o.Total = decimal.Zero
		if err := tx.UpdateOrder(ctx, &o); err != nil {
			return apperr.Internal(op, err)
		}
		if err := orders.Release(ctx, tx, &t); err != nil {
			return err
		}

		view = orders.NewTableView(t, nil, nil)
		evs = append(evs, event{orders.TopicOrderCancelled, t.ID, orders.EventOrderCancelled, orders.OrderCancelledPayload{
			TableID:        t.ID,
			OrderID:        o.ID,
			OrderNumber:    o.Number,
			PreviousStatus: string(prev),
			RestoredLines:  restored,
			SkippedLines:   skipped,
		}})
		return nil
	})
	if err != nil {
		return orders.TableView{}, err
	}
	s.afterCommit(ctx, []int64{tableID}, evs)
	return view, nil
}

// tryRecord appends a movement inside a savepoint. Failures are logged and
// leave the surrounding transaction intact.
func (s *Service) tryRecord(ctx context.Context, tx Tx, evs *[]event, e stock.Entry) bool {
	var m stock.Movement
	err := tx.Nested(ctx, func(n Tx) error {
		var err error
		m, err = s.Ledger.Record(ctx, n, e)
		return err
	})
	if err != nil {
		s.log().Warn("stock movement skipped",
			zap.Int64("product_id", e.ProductID),
			zap.String("kind", string(e.Kind)),
			zap.Int("qty", e.Quantity),
			zap.Error(err))
		return false
	}
	*evs = append(*evs, movementEvent(m))
	return true
}

// outstanding is what the order's movements still hold out of on_hand.
func (s *Service) outstanding(ctx context.Context, tx Tx, orderID int64) (map[int64]int, bool) {
	ms, err := tx.ListMovements(ctx, stock.Filter{OrderID: orderID})
	if err != nil {
		s.log().Warn("order movements unavailable", zap.Int64("order_id", orderID), zap.Error(err))
		return map[int64]int{}, false
	}
	return stock.Outstanding(ms), true
}

func (s *Service) afterCommit(ctx context.Context, tableIDs []int64, evs []event) {
	if s.Cache != nil {
		for _, id := range tableIDs {
			if err := s.Cache.InvalidateTable(ctx, id); err != nil {
				s.log().Warn("table view invalidation failed", zap.Int64("table_id", id), zap.Error(err))
			}
		}
	}
	if s.Events == nil {
		return
	}
	for _, ev := range evs {
		env, err := orders.NewEnvelope(ev.typ, s.ServiceName, strconv.FormatInt(ev.key, 10), ev.payload)
		if err != nil {
			s.log().Error("event encode failed", zap.String("event_type", ev.typ), zap.Error(err))
			continue
		}
		if err := s.Events.Publish(ctx, ev.topic, orders.PartitionKey(ev.key), env); err != nil {
			s.log().Warn("event publish failed",
				zap.String("topic", ev.topic), zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
}

func movementEvent(m stock.Movement) event {
	return event{orders.TopicStockMovement, m.ProductID, orders.EventStockMovement, orders.StockMovementPayload{
		MovementID: m.ID,
		ProductID:  m.ProductID,
		Kind:       string(m.Kind),
		Source:     string(m.Source),
		Delta:      m.Delta,
		Before:     m.Before,
		After:      m.After,
		OrderID:    m.OrderID,
	}}
}

func lockTable(ctx context.Context, tx Tx, op string, id int64) (orders.Table, error) {
	t, err := tx.LockTable(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Table{}, apperr.NotFound(op, "table %d not found", id)
	}
	if err != nil {
		return orders.Table{}, apperr.Internal(op, err)
	}
	return t, nil
}

func sortedKeys(m map[int64]int) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
