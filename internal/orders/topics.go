package orders

import "strconv"

const (
	TopicItemAdded      = "table.item.added"
	TopicItemRemoved    = "table.item.removed"
	TopicTablePaid      = "table.paid"
	TopicOrderCancelled = "table.order.cancelled"
	TopicStockMovement  = "stock.movement.recorded"
)

// PartitionKey keeps every event of one table (or product) on one partition.
func PartitionKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
