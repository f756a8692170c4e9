package orders

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openOrder(t *testing.T, st *memStore, tableID int64) (Order, Table) {
	t.Helper()
	st.tables[tableID] = Table{ID: tableID, Name: "Mesa", Status: TableFree}
	tbl := st.tables[tableID]
	o, created, err := GetOrCreatePending(context.Background(), st, Allocator{}, &tbl, 1, 0)
	if err != nil || !created {
		t.Fatalf("GetOrCreatePending: created=%v err=%v", created, err)
	}
	return o, tbl
}

func assertTotal(t *testing.T, st *memStore, o Order) {
	t.Helper()
	items, _ := st.ListItems(context.Background(), o.ID)
	stored, _ := st.GetOrder(context.Background(), o.ID)
	if !stored.Total.Equal(Sum(items)) || !o.Total.Equal(stored.Total) {
		t.Fatalf("total %s (stored %s) != sum of items %s", o.Total, stored.Total, Sum(items))
	}
}

func TestGetOrCreatePendingOccupiesOnce(t *testing.T) {
	st := newMemStore()
	o, tbl := openOrder(t, st, 5)
	if tbl.Status != TableOccupied || st.tables[5].Status != TableOccupied {
		t.Fatalf("table should be occupied, got %s", st.tables[5].Status)
	}
	again, created, err := GetOrCreatePending(context.Background(), st, Allocator{}, &tbl, 1, 0)
	if err != nil || created || again.ID != o.ID {
		t.Fatalf("expected the same pending order, got %+v created=%v err=%v", again, created, err)
	}
}

func TestAddItemMergesByProduct(t *testing.T) {
	ctx := context.Background()

	st := newMemStore()
	o, _ := openOrder(t, st, 1)
	if _, err := AddItem(ctx, st, &o, Line{ProductID: 7, Name: "Beer", Qty: 2, UnitPrice: dec("5.00")}); err != nil {
		t.Fatal(err)
	}
	it, err := AddItem(ctx, st, &o, Line{ProductID: 7, Name: "Beer", Qty: 3, UnitPrice: dec("6.00")})
	if err != nil {
		t.Fatal(err)
	}

	st2 := newMemStore()
	o2, _ := openOrder(t, st2, 1)
	once, err := AddItem(ctx, st2, &o2, Line{ProductID: 7, Name: "Beer", Qty: 5, UnitPrice: dec("5.00")})
	if err != nil {
		t.Fatal(err)
	}

	items, _ := st.ListItems(ctx, o.ID)
	if len(items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(items))
	}
	if it.Qty != once.Qty || !it.Subtotal.Equal(once.Subtotal) || !o.Total.Equal(o2.Total) {
		t.Fatalf("merged %d/%s/%s != single %d/%s/%s", it.Qty, it.Subtotal, o.Total, once.Qty, once.Subtotal, o2.Total)
	}
	if !it.UnitPrice.Equal(dec("5.00")) {
		t.Fatalf("merge must keep the first price snapshot, got %s", it.UnitPrice)
	}
}

func TestTotalMatchesItemsAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	o, _ := openOrder(t, st, 1)
	prices := []string{"5.00", "12.90", "0.10", "7.33"}
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 200; step++ {
		items, _ := st.ListItems(ctx, o.ID)
		if len(items) > 0 && rng.Intn(3) == 0 {
			victim := items[rng.Intn(len(items))]
			got, _, err := RemoveItem(ctx, st, victim.ID)
			if err != nil {
				t.Fatalf("step %d remove: %v", step, err)
			}
			o = got
		} else {
			p := rng.Intn(len(prices))
			_, err := AddItem(ctx, st, &o, Line{ProductID: int64(p + 1), Name: "p", Qty: rng.Intn(4) + 1, UnitPrice: dec(prices[p])})
			if err != nil {
				t.Fatalf("step %d add: %v", step, err)
			}
		}
		assertTotal(t, st, o)
	}
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	o, _ := openOrder(t, st, 1)

	if _, err := AddItem(ctx, st, &o, Line{ProductID: 1, Qty: 0, UnitPrice: dec("1")}); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("zero qty: got %v", err)
	}
	if _, err := AddItem(ctx, st, &o, Line{ProductID: 1, Qty: 2, UnitPrice: dec("1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := AddItem(ctx, st, &o, Line{ProductID: 1, Qty: -2, UnitPrice: dec("1")}); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("merge to zero: got %v", err)
	}
	it, err := AddItem(ctx, st, &o, Line{ProductID: 1, Qty: -1, UnitPrice: dec("1")})
	if err != nil || it.Qty != 1 {
		t.Fatalf("merge down to one: qty=%d err=%v", it.Qty, err)
	}
	if _, err := AddItem(ctx, st, &o, Line{ProductID: 2, Qty: 1, UnitPrice: dec("-1")}); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("negative price: got %v", err)
	}
	assertTotal(t, st, o)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	o, _ := openOrder(t, st, 1)
	a, _ := AddItem(ctx, st, &o, Line{ProductID: 1, Qty: 2, UnitPrice: dec("3.50")})
	if _, err := AddItem(ctx, st, &o, Line{ProductID: 2, Qty: 1, UnitPrice: dec("4.00")}); err != nil {
		t.Fatal(err)
	}

	got, removed, err := RemoveItem(ctx, st, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed.ProductID != 1 || !got.Total.Equal(dec("4.00")) {
		t.Fatalf("unexpected result %+v total %s", removed, got.Total)
	}
	if _, _, err := RemoveItem(ctx, st, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second remove: got %v", err)
	}
	if st.tables[1].Status != TableOccupied {
		t.Fatalf("the aggregate must not release the table by itself")
	}
}

func TestClosedOrderRejectsMutation(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	o, _ := openOrder(t, st, 1)
	it, _ := AddItem(ctx, st, &o, Line{ProductID: 1, Qty: 1, UnitPrice: dec("2")})
	o.Status = StatusDelivered
	_ = st.UpdateOrder(ctx, &o)

	if _, err := AddItem(ctx, st, &o, Line{ProductID: 1, Qty: 1, UnitPrice: dec("2")}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("add to delivered: %v", err)
	}
	if _, _, err := RemoveItem(ctx, st, it.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("remove from delivered: %v", err)
	}
}

func TestSubtotalIsExact(t *testing.T) {
	price := dec("0.10")
	sum := decimal.Zero
	for i := 0; i < 30; i++ {
		sum = sum.Add(price)
	}
	if !Subtotal(30, price).Equal(sum) || !sum.Equal(dec("3.00")) {
		t.Fatalf("subtotal %s != repeated sum %s", Subtotal(30, price), sum)
	}
}
