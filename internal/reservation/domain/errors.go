package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInventoryNotFound = errors.New("inventory not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")

	// ErrTransient marks lock timeouts, deadlocks and connection failures.
	// The whole operation may be retried by the caller.
	ErrTransient = errors.New("transient storage failure")
)

// InsufficientStockError carries the stock left on the inventory line.
type InsufficientStockError struct {
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock available. Only %d left.", e.Remaining)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrInventoryNotFound) || errors.Is(err, ErrOrderNotFound)
}

// IsClientError reports rejections caused by the request itself; these are never retried.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		IsNotFound(err) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotCancellable)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
