package application

import (
	"context"
	"time"

	"github.com/dmehra2102/market-preorders/internal/catalog/domain"
)

type Repository interface {
	ListMarkets(ctx context.Context, today time.Time) ([]domain.Market, error)
	// GetMarket returns domain.ErrMarketNotFound when no market has the id.
	GetMarket(ctx context.Context, marketID int64) (domain.MarketInfo, error)
	UpcomingEvents(ctx context.Context, marketID int64, today time.Time) ([]domain.MarketEvent, error)
	MarketVendors(ctx context.Context, marketID int64) ([]domain.Vendor, error)
	SearchProducts(ctx context.Context, term string) ([]domain.ProductHit, error)
}

// SearchCache holds recent search results. Implementations are best effort.
type SearchCache interface {
	Get(ctx context.Context, term string) ([]domain.ProductHit, bool, error)
	Set(ctx context.Context, term string, hits []domain.ProductHit) error
	Invalidate(ctx context.Context) error
}
