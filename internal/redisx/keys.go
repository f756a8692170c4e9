package redisx

import "time"

const (
	// Cached table view: table_view:{table_id} -> TableView JSON
	KeyTableView = "table_view:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// On-hand projection fed by stock events: stock:onhand:{product_id}
	KeyOnHand = "stock:onhand:%d"
)

var (
	TTLTableView = 30 * time.Second
	TTLDedup     = 48 * time.Hour
)
