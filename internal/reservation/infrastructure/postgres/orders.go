package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
)

type OrderRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOrderRepository(log *slog.Logger, pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{log: log, pool: pool}
}

// ListByUser returns the user's orders, newest first, with the market event they belong to.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.OrderSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.order_id, o.order_date, o.pickup_date, o.total_amount, o.payment_status, o.pickup_status,
		       me.event_date, m.name
		FROM orders o
		LEFT JOIN market_event me ON me.event_id = o.event_id
		LEFT JOIN market m ON m.market_id = me.market_id
		WHERE o.user_id = $1
		ORDER BY o.order_date DESC, o.order_id DESC`, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []domain.OrderSummary{}
	for rows.Next() {
		var (
			s       domain.OrderSummary
			payment string
			pickup  string
		)
		if err := rows.Scan(&s.OrderID, &s.OrderDate, &s.PickupDate, &s.TotalAmount, &payment, &pickup, &s.EventDate, &s.MarketName); err != nil {
			return nil, err
		}
		s.PaymentStatus = domain.PaymentStatus(payment)
		s.PickupStatus = domain.PickupStatus(pickup)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}
