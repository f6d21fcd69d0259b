package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ReserveRequest struct {
	EventID   int64
	ProductID int64
	Quantity  int
	UserID    int64
}

func (r ReserveRequest) Validate() error {
	switch {
	case r.EventID <= 0:
		return fmt.Errorf("%w: eventId must be a positive integer", ErrInvalidInput)
	case r.ProductID <= 0:
		return fmt.Errorf("%w: productId must be a positive integer", ErrInvalidInput)
	case r.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidInput)
	case r.UserID <= 0:
		return fmt.Errorf("%w: user id must be a positive integer", ErrInvalidInput)
	}
	return nil
}

type Reservation struct {
	OrderID   int64
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}
