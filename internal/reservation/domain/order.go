package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "Unpaid"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

type PickupStatus string

const (
	PickupPending   PickupStatus = "Pending"
	PickupReady     PickupStatus = "Ready"
	PickupCompleted PickupStatus = "Completed"
	PickupCancelled PickupStatus = "Cancelled"
)

type Order struct {
	ID            int64
	UserID        int64
	EventID       int64
	OrderDate     time.Time
	PickupDate    *time.Time
	TotalAmount   decimal.Decimal
	PaymentStatus PaymentStatus
	PickupStatus  PickupStatus
	Lines         []OrderLine
}

// OrderLine records the unit price charged when the order was placed.
type OrderLine struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrder builds an unpaid, pending pre-order with no pickup date.
func NewOrder(userID, eventID int64, now time.Time, lines ...OrderLine) Order {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return Order{
		UserID:        userID,
		EventID:       eventID,
		OrderDate:     now.UTC(),
		TotalAmount:   total,
		PaymentStatus: PaymentUnpaid,
		PickupStatus:  PickupPending,
		Lines:         lines,
	}
}

// Cancellable reports whether the reservation may still be released.
func (o Order) Cancellable() bool {
	return o.PaymentStatus == PaymentUnpaid && o.PickupStatus == PickupPending
}

// OrderSummary is one row of a customer's order history.
type OrderSummary struct {
	OrderID       int64           `json:"orderId"`
	OrderDate     time.Time       `json:"orderDate"`
	PickupDate    *time.Time      `json:"pickupDate"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PickupStatus  PickupStatus    `json:"pickupStatus"`
	EventDate     *time.Time      `json:"eventDate"`
	MarketName    *string         `json:"marketName"`
}
