package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seed(t *testing.T, s *Store, eventID, productID int64, available, reserved int) domain.InventoryLine {
	t.Helper()
	l, err := s.AddInventoryLine(domain.InventoryLine{
		EventID: eventID, ProductID: productID, VendorID: 1,
		AvailableQuantity: available, ReservedQuantity: reserved,
	})
	require.NoError(t, err)
	return l
}

func TestLockInventoryLine_NotFound(t *testing.T) {
	s := NewStore(time.Second)
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(context.Background()) }()

	_, err = tx.LockInventoryLine(context.Background(), 1, 99)
	assert.ErrorIs(t, err, domain.ErrInventoryNotFound)
}

func TestLockInventoryLine_TimesOutWithTransientError(t *testing.T) {
	ctx := context.Background()
	s := NewStore(30 * time.Millisecond)
	seed(t, s, 1, 7, 10, 0)

	holder, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = holder.LockInventoryLine(ctx, 1, 7)
	require.NoError(t, err)

	waiter, err := s.Begin(ctx)
	require.NoError(t, err)
	start := time.Now()
	_, err = waiter.LockInventoryLine(ctx, 1, 7)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	require.NoError(t, holder.Rollback(ctx))
	_, err = waiter.LockInventoryLine(ctx, 1, 7)
	assert.NoError(t, err)
	require.NoError(t, waiter.Rollback(ctx))
}

func TestLockInventoryLine_DifferentRowsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	s := NewStore(20 * time.Millisecond)
	seed(t, s, 1, 7, 10, 0)
	seed(t, s, 1, 8, 10, 0)

	a, _ := s.Begin(ctx)
	b, _ := s.Begin(ctx)
	defer func() { _ = a.Rollback(ctx) }()
	defer func() { _ = b.Rollback(ctx) }()

	_, err := a.LockInventoryLine(ctx, 1, 7)
	require.NoError(t, err)
	_, err = b.LockInventoryLine(ctx, 1, 8)
	assert.NoError(t, err)
}

func TestLockInventoryLine_ContextCancelled(t *testing.T) {
	s := NewStore(time.Minute)
	seed(t, s, 1, 7, 10, 0)

	holder, _ := s.Begin(context.Background())
	defer func() { _ = holder.Rollback(context.Background()) }()
	_, err := holder.LockInventoryLine(context.Background(), 1, 7)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	waiter, _ := s.Begin(context.Background())
	_, err = waiter.LockInventoryLine(ctx, 1, 7)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommit_AppliesStagedWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	seed(t, s, 1, 7, 10, 2)

	tx, _ := s.Begin(ctx)
	line, err := tx.LockInventoryLine(ctx, 1, 7)
	require.NoError(t, err)

	o := domain.NewOrder(1, 1, time.Now())
	id, err := tx.InsertOrder(ctx, o)
	require.NoError(t, err)
	require.NoError(t, tx.InsertOrderLine(ctx, domain.OrderLine{OrderID: id, ProductID: 7, Quantity: 3, UnitPrice: decimal.NewFromInt(5)}))
	require.NoError(t, tx.AddReserved(ctx, line.ID, 3))

	again, err := tx.LockInventoryLine(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, again.ReservedQuantity, "reads inside the tx see staged writes")

	stored, _ := s.InventoryLine(1, 7)
	assert.Equal(t, 2, stored.ReservedQuantity, "staged writes are invisible before commit")
	assert.Empty(t, s.Orders())

	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx))

	stored, _ = s.InventoryLine(1, 7)
	assert.Equal(t, 5, stored.ReservedQuantity)
	orders := s.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].ID)
	require.Len(t, orders[0].Lines, 1)
	assert.Equal(t, 3, orders[0].Lines[0].Quantity)
}

func TestAddReserved_RejectsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	seed(t, s, 1, 7, 5, 4)

	tx, _ := s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()
	line, err := tx.LockInventoryLine(ctx, 1, 7)
	require.NoError(t, err)

	assert.ErrorIs(t, tx.AddReserved(ctx, line.ID, 2), ErrConstraintViolation)
	assert.ErrorIs(t, tx.AddReserved(ctx, line.ID, -5), ErrConstraintViolation)
	assert.NoError(t, tx.AddReserved(ctx, line.ID, 1))
}

func TestAddReserved_RequiresLock(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	line := seed(t, s, 1, 7, 5, 0)

	tx, _ := s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()
	assert.Error(t, tx.AddReserved(ctx, line.ID, 1))
}

func TestLatestUnitPrice(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	s.AddOrder(domain.Order{UserID: 2, EventID: 1, OrderDate: base, Lines: []domain.OrderLine{
		{ProductID: 7, Quantity: 1, UnitPrice: decimal.RequireFromString("4.00")},
	}})
	s.AddOrder(domain.Order{UserID: 3, EventID: 2, OrderDate: base.Add(time.Hour), Lines: []domain.OrderLine{
		{ProductID: 7, Quantity: 1, UnitPrice: decimal.RequireFromString("3.50")},
		{ProductID: 8, Quantity: 1, UnitPrice: decimal.RequireFromString("9.00")},
	}})

	tx, _ := s.Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()

	price, ok, err := tx.LatestUnitPrice(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3.50", price.StringFixed(2))

	_, ok, err = tx.LatestUnitPrice(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockOrder_OwnershipAndPickupStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	id := s.AddOrder(domain.NewOrder(1, 1, time.Now(), domain.OrderLine{ProductID: 7, Quantity: 2, UnitPrice: decimal.NewFromInt(5)}))

	tx, _ := s.Begin(ctx)
	_, err := tx.LockOrder(ctx, id, 2)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	o, err := tx.LockOrder(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), o.Lines[0].ProductID)

	require.NoError(t, tx.SetPickupStatus(ctx, id, domain.PickupCancelled))
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, domain.PickupCancelled, s.Orders()[0].PickupStatus)
}

func TestClosedTx(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	tx, _ := s.Begin(ctx)
	require.NoError(t, tx.Rollback(ctx))

	assert.ErrorIs(t, tx.Commit(ctx), ErrTxClosed)
	_, err := tx.LockInventoryLine(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrTxClosed)
}
