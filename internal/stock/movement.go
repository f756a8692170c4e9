package stock

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindIn            Kind = "entrada"
	KindOut           Kind = "saida"
	KindAdjust        Kind = "ajuste"
	KindReserve       Kind = "reserva"
	KindReserveCancel Kind = "cancelamento_reserva"
)

var kinds = map[Kind]int{
	KindIn:            +1,
	KindOut:           -1,
	KindAdjust:        0, // signed by the caller
	KindReserve:       -1,
	KindReserveCancel: +1,
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("unknown movement kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

type Source string

const (
	SourceStoreSale   Source = "venda_fisica"
	SourceOnlineSale  Source = "venda_online"
	SourcePurchase    Source = "compra"
	SourceManual      Source = "ajuste_manual"
	SourceTableReserv Source = "reserva_mesa"
)

var sources = map[Source]bool{
	SourceStoreSale:   true,
	SourceOnlineSale:  true,
	SourcePurchase:    true,
	SourceManual:      true,
	SourceTableReserv: true,
}

func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !sources[src] {
		return "", fmt.Errorf("unknown movement source %q", s)
	}
	return src, nil
}

func (s Source) Valid() bool { return sources[s] }

// Movement is one immutable row of the ledger.
type Movement struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Kind      Kind      `json:"kind"`
	Source    Source    `json:"source"`
	Delta     int       `json:"delta"`
	Before    int       `json:"quantity_before"`
	After     int       `json:"quantity_after"`
	ActorID   int64     `json:"actor_id"`
	Note      string    `json:"note,omitempty"`
	OrderID   *int64    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Apply computes the quantity after a movement of kind k with magnitude qty
// (signed for ajuste). Depleting movements floor at zero and the returned
// delta is what actually changed.
func Apply(current int, k Kind, qty int) (after, delta int) {
	signed := qty
	switch sign := kinds[k]; {
	case sign > 0:
		signed = abs(qty)
	case sign < 0:
		signed = -abs(qty)
	}
	after = current + signed
	if after < 0 {
		after = 0
	}
	return after, after - current
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
