package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/market-preorders/internal/catalog/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) ListMarkets(ctx context.Context, today time.Time) ([]domain.Market, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.market_id, m.name, l.city, l.region, l.zip,
		       MIN(CASE WHEN me.event_date >= $1 THEN me.event_date END) AS next_event_date,
		       to_char(m.open_time, 'HH24:MI:SS'), to_char(m.close_time, 'HH24:MI:SS')
		FROM market m
		LEFT JOIN location l ON l.location_id = m.location_id
		LEFT JOIN market_event me ON me.market_id = m.market_id
		GROUP BY m.market_id, m.name, l.city, l.region, l.zip, m.open_time, m.close_time
		ORDER BY l.city, m.name`, today)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Market, error) {
		var m domain.Market
		err := row.Scan(&m.MarketID, &m.MarketName, &m.City, &m.Region, &m.Zip, &m.NextEventDate, &m.OpenTime, &m.CloseTime)
		return m, err
	})
}

func (r *Repository) GetMarket(ctx context.Context, marketID int64) (domain.MarketInfo, error) {
	var m domain.MarketInfo
	err := r.pool.QueryRow(ctx, `
		SELECT m.market_id, m.name, m.description, l.city, l.region, l.zip,
		       to_char(m.open_time, 'HH24:MI:SS'), to_char(m.close_time, 'HH24:MI:SS')
		FROM market m
		LEFT JOIN location l ON l.location_id = m.location_id
		WHERE m.market_id = $1`, marketID).
		Scan(&m.MarketID, &m.Name, &m.Description, &m.City, &m.Region, &m.Zip, &m.OpenTime, &m.CloseTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MarketInfo{}, domain.ErrMarketNotFound
	}
	if err != nil {
		return domain.MarketInfo{}, err
	}
	return m, nil
}

func (r *Repository) UpcomingEvents(ctx context.Context, marketID int64, today time.Time) ([]domain.MarketEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, event_date, to_char(start_time, 'HH24:MI:SS'), address
		FROM market_event
		WHERE market_id = $1 AND event_date >= $2
		ORDER BY event_date`, marketID, today)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MarketEvent, error) {
		var e domain.MarketEvent
		err := row.Scan(&e.EventID, &e.EventDate, &e.StartTime, &e.Address)
		return e, err
	})
}

func (r *Repository) MarketVendors(ctx context.Context, marketID int64) ([]domain.Vendor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT v.vendor_id, v.name, v.description, v.vendor_category
		FROM market_vendor mv
		JOIN vendor v ON v.vendor_id = mv.vendor_id
		WHERE mv.market_id = $1
		ORDER BY v.name`, marketID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Vendor, error) {
		var v domain.Vendor
		err := row.Scan(&v.VendorID, &v.Name, &v.Description, &v.VendorCategory)
		return v, err
	})
}

// SearchProducts matches product names containing term, case-insensitively, on lines
// that still have stock left.
func (r *Repository) SearchProducts(ctx context.Context, term string) ([]domain.ProductHit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.product_id, p.name, pc.name, v.name, i.event_id, me.event_date, m.name,
		       i.available_quantity - i.reserved_quantity
		FROM inventory i
		JOIN product p ON p.product_id = i.product_id
		JOIN vendor v ON v.vendor_id = i.vendor_id
		JOIN market_event me ON me.event_id = i.event_id
		JOIN market m ON m.market_id = me.market_id
		LEFT JOIN product_category pc ON pc.category_id = p.category_id
		WHERE i.available_quantity - i.reserved_quantity > 0
		  AND p.name ILIKE '%' || $1 || '%'
		ORDER BY p.name, me.event_date`, escapeLike(term))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProductHit, error) {
		var h domain.ProductHit
		err := row.Scan(&h.ProductID, &h.ProductName, &h.Category, &h.VendorName, &h.EventID, &h.EventDate, &h.MarketName, &h.QtyAvailable)
		return h, err
	})
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
