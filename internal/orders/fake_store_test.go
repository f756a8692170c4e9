package orders

import (
	"context"
	"sort"
	"sync"
)

// memStore is a goroutine-safe in-memory Store for aggregate tests.
type memStore struct {
	mu       sync.Mutex
	orders   map[int64]Order
	items    map[int64]OrderItem
	tables   map[int64]Table
	nextID   int64
	inserted int
}

func newMemStore() *memStore {
	return &memStore{
		orders: map[int64]Order{},
		items:  map[int64]OrderItem{},
		tables: map[int64]Table{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) MaxOrderNumber(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for _, o := range s.orders {
		if o.Number > max {
			max = o.Number
		}
	}
	return max, nil
}

func (s *memStore) InsertOrder(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders {
		if existing.Number == o.Number {
			return ErrNumberTaken
		}
		if o.Status == StatusPending && existing.Status == StatusPending && existing.TableID == o.TableID {
			return ErrPendingExists
		}
	}
	o.ID = s.id()
	s.orders[o.ID] = *o
	s.inserted++
	return nil
}

func (s *memStore) GetOrder(_ context.Context, id int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *memStore) UpdateOrder(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = *o
	return nil
}

func (s *memStore) FindItem(_ context.Context, orderID, productID int64) (OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.OrderID == orderID && it.ProductID == productID {
			return it, nil
		}
	}
	return OrderItem{}, ErrNotFound
}

func (s *memStore) GetItem(_ context.Context, id int64) (OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return OrderItem{}, ErrNotFound
	}
	return it, nil
}

func (s *memStore) InsertItem(_ context.Context, it *OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it.ID = s.id()
	s.items[it.ID] = *it
	return nil
}

func (s *memStore) UpdateItem(_ context.Context, it *OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = *it
	return nil
}

func (s *memStore) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *memStore) ListItems(_ context.Context, orderID int64) ([]OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OrderItem
	for _, it := range s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) LockTable(_ context.Context, id int64) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return Table{}, ErrNotFound
	}
	return t, nil
}

func (s *memStore) SetTableStatus(_ context.Context, id int64, st TableStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[id]
	t.Status = st
	s.tables[id] = t
	return nil
}

func (s *memStore) PendingOrder(_ context.Context, tableID int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.TableID == tableID && o.Status == StatusPending {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}
