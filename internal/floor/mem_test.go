package floor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/ariefcatur/go-table-orders/internal/stock"
)

var errDisk = errors.New("disk on fire")

type state struct {
	seq      int64
	tables   map[int64]orders.Table
	products map[int64]orders.Product
	orders   map[int64]orders.Order
	items    map[int64]orders.OrderItem
	moves    []stock.Movement
	payments []orders.Payment
}

func (s *state) clone() *state {
	c := &state{
		seq:      s.seq,
		tables:   make(map[int64]orders.Table, len(s.tables)),
		products: make(map[int64]orders.Product, len(s.products)),
		orders:   make(map[int64]orders.Order, len(s.orders)),
		items:    make(map[int64]orders.OrderItem, len(s.items)),
		moves:    append([]stock.Movement(nil), s.moves...),
		payments: append([]orders.Payment(nil), s.payments...),
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

// memDB serializes transactions behind one mutex and rolls back by snapshot.
type memDB struct {
	mu     sync.Mutex
	st     *state
	broken map[int64]bool // products whose stock row cannot be locked
}

func newMemDB() *memDB {
	return &memDB{
		st: &state{
			tables:   map[int64]orders.Table{},
			products: map[int64]orders.Product{},
			orders:   map[int64]orders.Order{},
			items:    map[int64]orders.OrderItem{},
		},
		broken: map[int64]bool{},
	}
}

func (db *memDB) InTx(ctx context.Context, fn func(tx Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	snap := db.st.clone()
	if err := fn(&memTx{db: db}); err != nil {
		db.st = snap
		return err
	}
	return nil
}

func (db *memDB) addTable(id int64, name string, status orders.TableStatus) {
	db.st.tables[id] = orders.Table{ID: id, Name: name, Slug: orders.Slugify(name), Status: status, Capacity: 4}
}

func (db *memDB) addProduct(id int64, name, price string) {
	db.st.products[id] = orders.Product{ID: id, Name: name, Price: dec(price)}
}

func (db *memDB) onHand(id int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.products[id].OnHand
}

func (db *memDB) order(id int64) orders.Order {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.orders[id]
}

type memTx struct{ db *memDB }

func (t *memTx) s() *state { return t.db.st }

func (t *memTx) id() int64 {
	t.s().seq++
	return t.s().seq
}

func (t *memTx) Nested(ctx context.Context, fn func(tx Tx) error) error {
	snap := t.s().clone()
	if err := fn(t); err != nil {
		t.db.st = snap
		return err
	}
	return nil
}

func (t *memTx) MaxOrderNumber(context.Context) (int64, error) {
	var max int64
	for _, o := range t.s().orders {
		if o.Number > max {
			max = o.Number
		}
	}
	return max, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *orders.Order) error {
	for _, other := range t.s().orders {
		if other.Number == o.Number {
			return orders.ErrNumberTaken
		}
		if other.TableID == o.TableID && other.Status == orders.StatusPending && o.Status == orders.StatusPending {
			return orders.ErrPendingExists
		}
	}
	o.ID = t.id()
	t.s().orders[o.ID] = *o
	return nil
}

func (t *memTx) GetOrder(_ context.Context, id int64) (orders.Order, error) {
	o, ok := t.s().orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (t *memTx) UpdateOrder(_ context.Context, o *orders.Order) error {
	t.s().orders[o.ID] = *o
	return nil
}

func (t *memTx) FindItem(_ context.Context, orderID, productID int64) (orders.OrderItem, error) {
	for _, it := range t.s().items {
		if it.OrderID == orderID && it.ProductID == productID {
			return it, nil
		}
	}
	return orders.OrderItem{}, orders.ErrNotFound
}

func (t *memTx) GetItem(_ context.Context, id int64) (orders.OrderItem, error) {
	it, ok := t.s().items[id]
	if !ok {
		return orders.OrderItem{}, orders.ErrNotFound
	}
	return it, nil
}

func (t *memTx) InsertItem(_ context.Context, it *orders.OrderItem) error {
	it.ID = t.id()
	t.s().items[it.ID] = *it
	return nil
}

func (t *memTx) UpdateItem(_ context.Context, it *orders.OrderItem) error {
	t.s().items[it.ID] = *it
	return nil
}

func (t *memTx) DeleteItem(_ context.Context, id int64) error {
	delete(t.s().items, id)
	return nil
}

func (t *memTx) ListItems(_ context.Context, orderID int64) ([]orders.OrderItem, error) {
	var out []orders.OrderItem
	for _, it := range t.s().items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) DeleteItems(_ context.Context, orderID int64) error {
	for id, it := range t.s().items {
		if it.OrderID == orderID {
			delete(t.s().items, id)
		}
	}
	return nil
}

func (t *memTx) LockTable(ctx context.Context, id int64) (orders.Table, error) {
	return t.GetTable(ctx, id)
}

func (t *memTx) SetTableStatus(_ context.Context, id int64, st orders.TableStatus) error {
	tbl := t.s().tables[id]
	tbl.Status = st
	t.s().tables[id] = tbl
	return nil
}

func (t *memTx) PendingOrder(_ context.Context, tableID int64) (orders.Order, error) {
	for _, o := range t.s().orders {
		if o.TableID == tableID && o.Status == orders.StatusPending {
			return o, nil
		}
	}
	return orders.Order{}, orders.ErrNotFound
}

func (t *memTx) LatestOrder(_ context.Context, tableID int64) (orders.Order, error) {
	var latest orders.Order
	for _, o := range t.s().orders {
		if o.TableID == tableID && o.ID > latest.ID {
			latest = o
		}
	}
	if latest.ID == 0 {
		return orders.Order{}, orders.ErrNotFound
	}
	return latest, nil
}

func (t *memTx) LockStock(_ context.Context, id int64) (int, error) {
	if t.db.broken[id] {
		return 0, errDisk
	}
	p, ok := t.s().products[id]
	if !ok {
		return 0, stock.ErrProductNotFound
	}
	return p.OnHand, nil
}

func (t *memTx) SetStock(_ context.Context, id int64, n int) error {
	p := t.s().products[id]
	p.OnHand = n
	t.s().products[id] = p
	return nil
}

func (t *memTx) InsertMovement(_ context.Context, m *stock.Movement) error {
	m.ID = t.id()
	t.s().moves = append(t.s().moves, *m)
	return nil
}

func (t *memTx) ListMovements(_ context.Context, f stock.Filter) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range t.s().moves {
		if f.ProductID != 0 && m.ProductID != f.ProductID {
			continue
		}
		if f.OrderID != 0 && (m.OrderID == nil || *m.OrderID != f.OrderID) {
			continue
		}
		out = append(out, m)
	}
	if f.Newest {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) GetProduct(_ context.Context, id int64) (orders.Product, error) {
	p, ok := t.s().products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return p, nil
}

func (t *memTx) InsertPayment(_ context.Context, p *orders.Payment) error {
	p.ID = t.id()
	t.s().payments = append(t.s().payments, *p)
	return nil
}

func (t *memTx) GetTable(_ context.Context, id int64) (orders.Table, error) {
	tbl, ok := t.s().tables[id]
	if !ok {
		return orders.Table{}, orders.ErrNotFound
	}
	return tbl, nil
}

func (t *memTx) GetTableBySlug(_ context.Context, slug string) (orders.Table, error) {
	for _, tbl := range t.s().tables {
		if tbl.Slug != "" && strings.EqualFold(tbl.Slug, slug) {
			return tbl, nil
		}
	}
	return orders.Table{}, orders.ErrNotFound
}

func (t *memTx) ListTables(context.Context) ([]orders.Table, error) {
	out := make([]orders.Table, 0, len(t.s().tables))
	for _, tbl := range t.s().tables {
		out = append(out, tbl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertTable(_ context.Context, tbl *orders.Table) error {
	tbl.ID = t.id()
	t.s().tables[tbl.ID] = *tbl
	return nil
}

func (t *memTx) UpdateTable(_ context.Context, tbl *orders.Table) error {
	t.s().tables[tbl.ID] = *tbl
	return nil
}

func (t *memTx) DeleteTable(_ context.Context, id int64) error {
	for _, o := range t.s().orders {
		if o.TableID == id {
			return orders.ErrTableHasOrders
		}
	}
	delete(t.s().tables, id)
	return nil
}

func (t *memTx) SlugTaken(_ context.Context, slug string, exceptID int64) (bool, error) {
	for _, tbl := range t.s().tables {
		if tbl.ID != exceptID && strings.EqualFold(tbl.Slug, slug) {
			return true, nil
		}
	}
	return false, nil
}

type recordingBus struct {
	mu     sync.Mutex
	topics []string
	envs   []orders.Envelope
}

func (b *recordingBus) Publish(_ context.Context, topic string, _ []byte, env orders.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.envs = append(b.envs, env)
	return nil
}

func (b *recordingBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type mapCache struct {
	views       map[int64]orders.TableView
	hits        int
	invalidated int
}

func (c *mapCache) GetTableView(_ context.Context, id int64) (orders.TableView, bool, error) {
	v, ok := c.views[id]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) SetTableView(_ context.Context, v orders.TableView) error {
	c.views[v.ID] = v
	return nil
}

func (c *mapCache) InvalidateTable(_ context.Context, id int64) error {
	delete(c.views, id)
	c.invalidated++
	return nil
}
