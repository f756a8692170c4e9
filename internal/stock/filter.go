package stock

// Filter selects ledger rows. Zero fields match everything; rows come back in
// id order, newest first when Newest is set.
type Filter struct {
	ProductID int64
	OrderID   int64
	Limit     int
	Newest    bool
}
