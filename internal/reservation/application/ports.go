package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
	"github.com/dmehra2102/market-preorders/pkg/outbox"
)

// Store opens reservation transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one open transaction. Row locks taken through it are held until Commit or
// Rollback, and Rollback after Commit is a no-op.
type Tx interface {
	// LockInventoryLine locks the (event, product) row exclusively, waiting at most the
	// store's lock timeout. Returns domain.ErrInventoryNotFound or a domain.ErrTransient wrap.
	LockInventoryLine(ctx context.Context, eventID, productID int64) (domain.InventoryLine, error)
	// LatestUnitPrice is the unit price of the most recent order line for the product.
	LatestUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, bool, error)
	InsertOrder(ctx context.Context, o domain.Order) (int64, error)
	InsertOrderLine(ctx context.Context, l domain.OrderLine) error
	AddReserved(ctx context.Context, inventoryID int64, delta int) error
	// LockOrder locks an order owned by userID and loads its lines.
	LockOrder(ctx context.Context, orderID, userID int64) (domain.Order, error)
	SetPickupStatus(ctx context.Context, orderID int64, status domain.PickupStatus) error
	AppendOutbox(ctx context.Context, ev outbox.Event) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type OrderReader interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.OrderSummary, error)
}
