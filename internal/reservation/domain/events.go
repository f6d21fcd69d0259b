package domain

import "github.com/shopspring/decimal"

const (
	EventPreorderPlaced = "PreorderPlaced"
	EventOrderCancelled = "OrderCancelled"
)

type PreorderPlaced struct {
	OrderID   int64           `json:"orderId"`
	UserID    int64           `json:"userId"`
	EventID   int64           `json:"eventId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

type ReleasedLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type OrderCancelled struct {
	OrderID  int64          `json:"orderId"`
	UserID   int64          `json:"userId"`
	EventID  int64          `json:"eventId"`
	Released []ReleasedLine `json:"released"`
}
