package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memProjection struct {
	seen    map[string]bool
	onHand  map[int64]int
	lastID  map[int64]int64
	failSet bool
}

func newProjection() *memProjection {
	return &memProjection{seen: map[string]bool{}, onHand: map[int64]int{}, lastID: map[int64]int64{}}
}

func (m *memProjection) Seen(_ context.Context, id string) (bool, error) { return m.seen[id], nil }

func (m *memProjection) MarkSeen(_ context.Context, id string) error {
	m.seen[id] = true
	return nil
}

func (m *memProjection) SetOnHand(_ context.Context, productID, movementID int64, onHand int) (bool, error) {
	if m.failSet {
		return false, errors.New("redis down")
	}
	if movementID <= m.lastID[productID] {
		return false, nil
	}
	m.lastID[productID] = movementID
	m.onHand[productID] = onHand
	return true, nil
}

func movement(t *testing.T, eventType string, p orders.StockMovementPayload) []byte {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "test", "", p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleProjectsLatestMovement(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	st := newProjection()
	s := &Service{Store: st, LowStock: 3, Log: zap.New(core)}

	newer := movement(t, orders.EventStockMovement, orders.StockMovementPayload{MovementID: 5, ProductID: 1, After: 2, Kind: "saida"})
	older := movement(t, orders.EventStockMovement, orders.StockMovementPayload{MovementID: 4, ProductID: 1, After: 9})

	for _, b := range [][]byte{newer, older, newer} {
		if err := s.Handle(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	if st.onHand[1] != 2 {
		t.Fatalf("on hand = %d, want 2", st.onHand[1])
	}
	if n := logs.FilterMessage("low stock").Len(); n != 1 {
		t.Fatalf("low stock warnings = %d, want 1", n)
	}
}

func TestHandleDropsForeignAndBrokenMessages(t *testing.T) {
	ctx := context.Background()
	st := newProjection()
	s := &Service{Store: st}

	other := movement(t, orders.EventTablePaid, orders.StockMovementPayload{MovementID: 1, ProductID: 1, After: 1})
	for _, b := range [][]byte{[]byte("not json"), other} {
		if err := s.Handle(ctx, b); err != nil {
			t.Fatalf("expected drop, got %v", err)
		}
	}
	if len(st.onHand) != 0 || len(st.seen) != 0 {
		t.Fatalf("nothing should be projected: %+v", st)
	}
}

func TestHandleReturnsStoreErrors(t *testing.T) {
	st := newProjection()
	st.failSet = true
	s := &Service{Store: st}
	b := movement(t, orders.EventStockMovement, orders.StockMovementPayload{MovementID: 1, ProductID: 1, After: 1})
	if err := s.Handle(context.Background(), b); err == nil {
		t.Fatal("expected the store error so the message is retried")
	}
	if len(st.seen) != 0 {
		t.Fatal("a failed projection must not be marked as seen")
	}
}
