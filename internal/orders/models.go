package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog row as seen by the core: only OnHand is written here.
type Product struct {
	ID     int64
	Name   string
	Price  decimal.Decimal
	OnHand int
}

type Table struct {
	ID            int64
	Name          string
	Slug          string
	Status        TableStatus // see status.go
	ResponsibleID *int64
	Capacity      int
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Order struct {
	ID        int64
	Number    int64
	TableID   int64
	ServerID  int64
	Status    Status
	Total     decimal.Decimal
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Name      string // product name when first added
	Qty       int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

type Payment struct {
	ID        int64
	OrderID   int64
	Method    PaymentMethod
	Amount    decimal.Decimal
	Received  decimal.Decimal
	Change    decimal.Decimal
	Discount  decimal.Decimal
	Status    PaymentStatus
	Notes     string
	CreatedAt time.Time
}

// TableView is what callers get back after every table operation.
type TableView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nome"`
	Status      TableStatus     `json:"status"`
	Slug        string          `json:"slug"`
	OrderID     int64           `json:"pedido_id,omitempty"`
	OrderNumber int64           `json:"pedido"`
	Total       decimal.Decimal `json:"total"`
	Items       []ItemView      `json:"itens"`
}

type ItemView struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"produtoId"`
	Name      string          `json:"nome"`
	Qty       int             `json:"quantidade"`
	UnitPrice decimal.Decimal `json:"precoUnitario"`
	Subtotal  decimal.Decimal `json:"total"`
}

// NewTableView builds the view for t; o is the table's pending order, if any.
func NewTableView(t Table, o *Order, items []OrderItem) TableView {
	v := TableView{
		ID:     t.ID,
		Name:   t.Name,
		Status: t.Status,
		Slug:   t.Slug,
		Total:  decimal.Zero,
		Items:  []ItemView{},
	}
	if o == nil {
		return v
	}
	v.OrderID = o.ID
	v.OrderNumber = o.Number
	v.Total = o.Total
	for _, it := range items {
		v.Items = append(v.Items, ItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return v
}
