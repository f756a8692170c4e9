package orders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventItemAdded       = "TableItemAdded"
	EventItemRemoved     = "TableItemRemoved"
	EventTablePaid       = "TablePaid"
	EventOrderCancelled  = "TableOrderCancelled"
	EventStockMovement   = "StockMovementRecorded"
	EventVersion         = 1
	HeaderEventType      = "x-event-type"
	HeaderEventVersion   = "x-event-version"
	defaultEventProducer = "table-orders"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // table id or product id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	if producer == "" {
		producer = defaultEventProducer
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// ---- payloads ----

type ItemAddedPayload struct {
	TableID     int64  `json:"table_id"`
	OrderID     int64  `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	ItemID      int64  `json:"item_id"`
	ProductID   int64  `json:"product_id"`
	Qty         int    `json:"qty"`
	ItemQty     int    `json:"item_qty"`
	OrderTotal  string `json:"order_total"`
	OpenedOrder bool   `json:"opened_order"`
}

type ItemRemovedPayload struct {
	TableID    int64  `json:"table_id"`
	OrderID    int64  `json:"order_id"`
	ItemID     int64  `json:"item_id"`
	ProductID  int64  `json:"product_id"`
	OrderTotal string `json:"order_total"`
	Released   bool   `json:"table_released"`
}

type TablePaidPayload struct {
	TableID     int64  `json:"table_id"`
	OrderID     int64  `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	Method      string `json:"method"`
	Amount      string `json:"amount"`
	Change      string `json:"change"`
	// SkippedLines counts sale movements that could not be recorded.
	SkippedLines int `json:"skipped_lines,omitempty"`
}

type OrderCancelledPayload struct {
	TableID        int64  `json:"table_id"`
	OrderID        int64  `json:"order_id"`
	OrderNumber    int64  `json:"order_number"`
	PreviousStatus string `json:"previous_status"`
	RestoredLines  int    `json:"restored_lines"`
	SkippedLines   int    `json:"skipped_lines,omitempty"`
}

type StockMovementPayload struct {
	MovementID int64  `json:"movement_id"`
	ProductID  int64  `json:"product_id"`
	Kind       string `json:"kind"`
	Source     string `json:"source"`
	Delta      int    `json:"delta"`
	Before     int    `json:"quantity_before"`
	After      int    `json:"quantity_after"`
	OrderID    *int64 `json:"order_id,omitempty"`
}
