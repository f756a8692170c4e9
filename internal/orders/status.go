package orders

import "fmt"

type Status string

const (
	StatusPending       Status = "pending"
	StatusInPreparation Status = "in_preparation"
	StatusReady         Status = "ready"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:       {StatusInPreparation: true, StatusDelivered: true, StatusCancelled: true},
	StatusInPreparation: {StatusReady: true, StatusCancelled: true},
	StatusReady:         {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:     {StatusCancelled: true}, // void by table cancellation
	StatusCancelled:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type TableStatus string

const (
	TableFree        TableStatus = "free"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

var validTableNext = map[TableStatus]map[TableStatus]bool{
	TableFree:        {TableOccupied: true, TableReserved: true, TableMaintenance: true},
	TableOccupied:    {TableFree: true},
	TableReserved:    {TableOccupied: true, TableFree: true, TableMaintenance: true},
	TableMaintenance: {TableFree: true, TableReserved: true},
}

func CanTableTransition(from, to TableStatus) bool {
	return validTableNext[from][to]
}

func ParseTableStatus(s string) (TableStatus, error) {
	st := TableStatus(s)
	if _, ok := validTableNext[st]; !ok {
		return "", fmt.Errorf("unknown table status %q", s)
	}
	return st, nil
}

type PaymentMethod string

const (
	PayCash     PaymentMethod = "dinheiro"
	PayCredit   PaymentMethod = "cartao_credito"
	PayDebit    PaymentMethod = "cartao_debito"
	PayPix      PaymentMethod = "pix"
	PayTransfer PaymentMethod = "transferencia"
)

var paymentMethods = map[PaymentMethod]bool{
	PayCash: true, PayCredit: true, PayDebit: true, PayPix: true, PayTransfer: true,
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !paymentMethods[m] {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pendente"
	PaymentApproved  PaymentStatus = "aprovado"
	PaymentRefused   PaymentStatus = "recusado"
	PaymentCancelled PaymentStatus = "cancelado"
)
