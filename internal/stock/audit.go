package stock

// Replay sums movement deltas in creation order starting from zero.
func Replay(ms []Movement) int {
	n := 0
	for _, m := range ms {
		n += m.Delta
	}
	return n
}

type AuditReport struct {
	ProductID  int64 `json:"product_id"`
	OnHand     int   `json:"on_hand"`
	Replayed   int   `json:"replayed"`
	Movements  int   `json:"movements"`
	Consistent bool  `json:"consistent"`
	// BrokenAt is the first movement whose quantity_before disagrees with the
	// running balance, 0 when the chain is intact.
	BrokenAt int64 `json:"broken_at,omitempty"`
}

// Audit checks ms (ordered by id) against the product's current on_hand.
func Audit(productID int64, onHand int, ms []Movement) AuditReport {
	r := AuditReport{ProductID: productID, OnHand: onHand, Movements: len(ms)}
	running := 0
	for _, m := range ms {
		if r.BrokenAt == 0 && (m.Before != running || m.After != running+m.Delta || m.After < 0) {
			r.BrokenAt = m.ID
		}
		running += m.Delta
	}
	r.Replayed = running
	r.Consistent = r.BrokenAt == 0 && running == onHand
	return r
}

// Outstanding returns, per product, how much stock the given movements still
// hold out of on_hand (the negated net delta, never below zero).
func Outstanding(ms []Movement) map[int64]int {
	net := map[int64]int{}
	for _, m := range ms {
		net[m.ProductID] += m.Delta
	}
	out := make(map[int64]int, len(net))
	for pid, d := range net {
		if d < 0 {
			out[pid] = -d
		}
	}
	return out
}
