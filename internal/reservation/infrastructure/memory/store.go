package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/market-preorders/internal/reservation/application"
	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
	"github.com/dmehra2102/market-preorders/pkg/outbox"
)

var (
	ErrTxClosed            = errors.New("tx is closed")
	ErrConstraintViolation = errors.New("inventory_reserved_within_available constraint violated")
)

// Store keeps inventory lines in memory, each guarded by its own lock, so reservations
// on different (event, product) pairs never wait on each other. Writes are staged in the
// transaction and applied atomically on Commit.
type Store struct {
	lockTimeout time.Duration

	mu          sync.Mutex
	lines       map[domain.LineKey]*lineRow
	linesByID   map[int64]*lineRow
	orders      map[int64]*orderRow
	events      []outbox.Event
	nextLineID  int64
	nextOrderID int64
	nextEventID int64
}

type lineRow struct {
	lock rowLock
	line domain.InventoryLine
}

type orderRow struct {
	lock  rowLock
	order domain.Order
}

func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		lockTimeout: lockTimeout,
		lines:       map[domain.LineKey]*lineRow{},
		linesByID:   map[int64]*lineRow{},
		orders:      map[int64]*orderRow{},
	}
}

// AddInventoryLine registers a line as event setup would. A zero ID is assigned.
func (s *Store) AddInventoryLine(l domain.InventoryLine) (domain.InventoryLine, error) {
	if l.ReservedQuantity < 0 || l.ReservedQuantity > l.AvailableQuantity {
		return domain.InventoryLine{}, ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[l.Key()]; ok {
		return domain.InventoryLine{}, fmt.Errorf("inventory line for event %d product %d already exists", l.EventID, l.ProductID)
	}
	if l.ID == 0 {
		s.nextLineID++
		l.ID = s.nextLineID
	}
	row := &lineRow{lock: newRowLock(), line: l}
	s.lines[l.Key()] = row
	s.linesByID[l.ID] = row
	return l, nil
}

// AddOrder records an already committed order, e.g. order history for pricing.
func (s *Store) AddOrder(o domain.Order) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	o.ID = s.nextOrderID
	o.Lines = cloneLines(o.Lines, o.ID)
	s.orders[o.ID] = &orderRow{lock: newRowLock(), order: o}
	return o.ID
}

func (s *Store) InventoryLine(eventID, productID int64) (domain.InventoryLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.lines[domain.LineKey{EventID: eventID, ProductID: productID}]
	if !ok {
		return domain.InventoryLine{}, false
	}
	return row.line, true
}

// Orders returns committed orders by ascending id.
func (s *Store) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, row := range s.orders {
		o := row.order
		o.Lines = cloneLines(o.Lines, o.ID)
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b domain.Order) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]domain.OrderSummary, error) {
	var out []domain.OrderSummary
	for _, o := range s.Orders() {
		if o.UserID != userID {
			continue
		}
		out = append(out, domain.OrderSummary{
			OrderID:       o.ID,
			OrderDate:     o.OrderDate,
			PickupDate:    o.PickupDate,
			TotalAmount:   o.TotalAmount,
			PaymentStatus: o.PaymentStatus,
			PickupStatus:  o.PickupStatus,
		})
	}
	slices.SortStableFunc(out, func(a, b domain.OrderSummary) int {
		return cmp.Or(b.OrderDate.Compare(a.OrderDate), cmp.Compare(b.OrderID, a.OrderID))
	})
	return out, nil
}

func (s *Store) Begin(ctx context.Context) (application.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		s:      s,
		lines:  map[int64]*lineRow{},
		keys:   map[domain.LineKey]int64{},
		locked: map[int64]*orderRow{},
		deltas: map[int64]int{},
		pickup: map[int64]domain.PickupStatus{},
	}, nil
}

type Tx struct {
	s      *Store
	lines  map[int64]*lineRow
	keys   map[domain.LineKey]int64
	locked map[int64]*orderRow
	deltas map[int64]int
	orders []domain.Order
	pickup map[int64]domain.PickupStatus
	events []outbox.Event
	closed bool
}

func (t *Tx) LockInventoryLine(ctx context.Context, eventID, productID int64) (domain.InventoryLine, error) {
	if t.closed {
		return domain.InventoryLine{}, ErrTxClosed
	}
	key := domain.LineKey{EventID: eventID, ProductID: productID}
	if id, ok := t.keys[key]; ok {
		return t.view(id), nil
	}

	t.s.mu.Lock()
	row, ok := t.s.lines[key]
	t.s.mu.Unlock()
	if !ok {
		return domain.InventoryLine{}, domain.ErrInventoryNotFound
	}
	if err := row.lock.acquire(ctx, t.s.lockTimeout); err != nil {
		return domain.InventoryLine{}, err
	}

	t.s.mu.Lock()
	id := row.line.ID
	t.s.mu.Unlock()
	t.lines[id] = row
	t.keys[key] = id
	return t.view(id), nil
}

// view is the locked line as seen inside the transaction.
func (t *Tx) view(inventoryID int64) domain.InventoryLine {
	t.s.mu.Lock()
	l := t.lines[inventoryID].line
	t.s.mu.Unlock()
	l.ReservedQuantity += t.deltas[inventoryID]
	return l
}

func (t *Tx) LatestUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, bool, error) {
	if t.closed {
		return decimal.Decimal{}, false, ErrTxClosed
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var (
		latest *domain.Order
		price  decimal.Decimal
	)
	for _, row := range t.s.orders {
		o := &row.order
		for _, l := range o.Lines {
			if l.ProductID != productID {
				continue
			}
			if latest == nil || o.OrderDate.After(latest.OrderDate) ||
				(o.OrderDate.Equal(latest.OrderDate) && o.ID > latest.ID) {
				latest = o
				price = l.UnitPrice
			}
		}
	}
	return price, latest != nil, nil
}

func (t *Tx) InsertOrder(ctx context.Context, o domain.Order) (int64, error) {
	if t.closed {
		return 0, ErrTxClosed
	}
	t.s.mu.Lock()
	t.s.nextOrderID++
	id := t.s.nextOrderID
	t.s.mu.Unlock()

	o.ID = id
	o.Lines = nil
	t.orders = append(t.orders, o)
	return id, nil
}

func (t *Tx) InsertOrderLine(ctx context.Context, l domain.OrderLine) error {
	if t.closed {
		return ErrTxClosed
	}
	for i := range t.orders {
		if t.orders[i].ID == l.OrderID {
			t.orders[i].Lines = append(t.orders[i].Lines, l)
			return nil
		}
	}
	return fmt.Errorf("order %d is not part of this transaction", l.OrderID)
}

func (t *Tx) AddReserved(ctx context.Context, inventoryID int64, delta int) error {
	if t.closed {
		return ErrTxClosed
	}
	if _, ok := t.lines[inventoryID]; !ok {
		return fmt.Errorf("inventory line %d is not locked by this transaction", inventoryID)
	}
	l := t.view(inventoryID)
	next := l.ReservedQuantity + delta
	if next < 0 || next > l.AvailableQuantity {
		return ErrConstraintViolation
	}
	t.deltas[inventoryID] += delta
	return nil
}

func (t *Tx) LockOrder(ctx context.Context, orderID, userID int64) (domain.Order, error) {
	if t.closed {
		return domain.Order{}, ErrTxClosed
	}
	t.s.mu.Lock()
	row, ok := t.s.orders[orderID]
	owned := ok && row.order.UserID == userID
	t.s.mu.Unlock()
	if !owned {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if _, held := t.locked[orderID]; !held {
		if err := row.lock.acquire(ctx, t.s.lockTimeout); err != nil {
			return domain.Order{}, err
		}
		t.locked[orderID] = row
	}

	t.s.mu.Lock()
	o := row.order
	t.s.mu.Unlock()
	o.Lines = cloneLines(o.Lines, o.ID)
	if st, ok := t.pickup[orderID]; ok {
		o.PickupStatus = st
	}
	return o, nil
}

func (t *Tx) SetPickupStatus(ctx context.Context, orderID int64, status domain.PickupStatus) error {
	if t.closed {
		return ErrTxClosed
	}
	if _, ok := t.locked[orderID]; !ok {
		return fmt.Errorf("order %d is not locked by this transaction", orderID)
	}
	t.pickup[orderID] = status
	return nil
}

func (t *Tx) AppendOutbox(ctx context.Context, ev outbox.Event) error {
	if t.closed {
		return ErrTxClosed
	}
	t.events = append(t.events, ev)
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	t.s.mu.Lock()
	for id, d := range t.deltas {
		t.s.linesByID[id].line.ReservedQuantity += d
	}
	for _, o := range t.orders {
		t.s.orders[o.ID] = &orderRow{lock: newRowLock(), order: o}
	}
	for id, st := range t.pickup {
		t.s.orders[id].order.PickupStatus = st
	}
	now := time.Now().UTC()
	for _, ev := range t.events {
		t.s.nextEventID++
		ev.ID = t.s.nextEventID
		ev.Status = outbox.StatusPending
		ev.CreatedAt = now
		t.s.events = append(t.s.events, ev)
	}
	t.s.mu.Unlock()

	t.release()
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	t.closed = true
	for _, row := range t.lines {
		row.lock.release()
	}
	for _, row := range t.locked {
		row.lock.release()
	}
	t.lines, t.locked = nil, nil
}

func cloneLines(lines []domain.OrderLine, orderID int64) []domain.OrderLine {
	out := make([]domain.OrderLine, len(lines))
	for i, l := range lines {
		l.OrderID = orderID
		out[i] = l
	}
	return out
}
