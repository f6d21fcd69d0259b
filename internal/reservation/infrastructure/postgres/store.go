package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/market-preorders/internal/reservation/application"
	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
	"github.com/dmehra2102/market-preorders/pkg/outbox"
)

// Store runs reservation transactions on Postgres. Every transaction carries a local
// lock_timeout so a blocked row lock surfaces as a transient error instead of a hang.
type Store struct {
	log         *slog.Logger
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{log: log, pool: pool, lockTimeout: lockTimeout}
}

func (s *Store) Begin(ctx context.Context) (application.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, classify(err)
	}
	if s.lockTimeout > 0 {
		ms := strconv.FormatInt(s.lockTimeout.Milliseconds(), 10) + "ms"
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			_ = tx.Rollback(ctx)
			return nil, classify(err)
		}
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockInventoryLine(ctx context.Context, eventID, productID int64) (domain.InventoryLine, error) {
	var l domain.InventoryLine
	err := t.tx.QueryRow(ctx, `
		SELECT inventory_id, event_id, product_id, vendor_id, available_quantity, reserved_quantity
		FROM inventory
		WHERE event_id = $1 AND product_id = $2
		FOR UPDATE`, eventID, productID).
		Scan(&l.ID, &l.EventID, &l.ProductID, &l.VendorID, &l.AvailableQuantity, &l.ReservedQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.InventoryLine{}, domain.ErrInventoryNotFound
	}
	if err != nil {
		return domain.InventoryLine{}, classify(err)
	}
	return l, nil
}

func (t *pgTx) LatestUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := t.tx.QueryRow(ctx, `
		SELECT oi.unit_price
		FROM order_item oi
		JOIN orders o ON o.order_id = oi.order_id
		WHERE oi.product_id = $1
		ORDER BY o.order_date DESC, oi.order_item_id DESC
		LIMIT 1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, classify(err)
	}
	return price, true, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o domain.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, event_id, order_date, pickup_date, total_amount, payment_status, pickup_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING order_id`,
		o.UserID, o.EventID, o.OrderDate, o.PickupDate, o.TotalAmount, string(o.PaymentStatus), string(o.PickupStatus)).
		Scan(&id)
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func (t *pgTx) InsertOrderLine(ctx context.Context, l domain.OrderLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO order_item (order_id, product_id, quantity, unit_price) VALUES ($1,$2,$3,$4)`,
		l.OrderID, l.ProductID, l.Quantity, l.UnitPrice)
	return classify(err)
}

func (t *pgTx) AddReserved(ctx context.Context, inventoryID int64, delta int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE inventory SET reserved_quantity = reserved_quantity + $2 WHERE inventory_id = $1`,
		inventoryID, delta)
	if err != nil {
		return classify(err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("inventory line %d: %w", inventoryID, domain.ErrInventoryNotFound)
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, orderID, userID int64) (domain.Order, error) {
	var (
		o       domain.Order
		payment string
		pickup  string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT order_id, user_id, event_id, order_date, pickup_date, total_amount, payment_status, pickup_status
		FROM orders
		WHERE order_id = $1 AND user_id = $2
		FOR UPDATE`, orderID, userID).
		Scan(&o.ID, &o.UserID, &o.EventID, &o.OrderDate, &o.PickupDate, &o.TotalAmount, &payment, &pickup)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, classify(err)
	}
	o.PaymentStatus = domain.PaymentStatus(payment)
	o.PickupStatus = domain.PickupStatus(pickup)

	rows, err := t.tx.Query(ctx, `SELECT product_id, quantity, unit_price FROM order_item WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return domain.Order{}, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		l := domain.OrderLine{OrderID: orderID}
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return domain.Order{}, err
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, classify(err)
	}
	return o, nil
}

func (t *pgTx) SetPickupStatus(ctx context.Context, orderID int64, status domain.PickupStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET pickup_status = $2 WHERE order_id = $1`, orderID, string(status))
	return classify(err)
}

func (t *pgTx) AppendOutbox(ctx context.Context, ev outbox.Event) error {
	return classify(outbox.Insert(ctx, t.tx, ev))
}

func (t *pgTx) Commit(ctx context.Context) error {
	return classify(t.tx.Commit(ctx))
}

// Rollback is safe after Commit.
func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
