package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/market-preorders/internal/catalog/domain"
)

type Service struct {
	log    *slog.Logger
	repo   Repository
	cache  SearchCache
	now    func() time.Time
	tracer trace.Tracer
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the read side. A nil cache disables search caching.
func NewService(log *slog.Logger, repo Repository, cache SearchCache, opts ...Option) *Service {
	s := &Service{
		log:    log,
		repo:   repo,
		cache:  cache,
		now:    time.Now,
		tracer: otel.Tracer("catalog-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	ctx, span := s.tracer.Start(ctx, "ListMarkets")
	defer span.End()

	markets, err := s.repo.ListMarkets(ctx, s.today())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list markets: %w", err)
	}
	return markets, nil
}

func (s *Service) GetMarket(ctx context.Context, marketID int64) (domain.MarketDetail, error) {
	if marketID <= 0 {
		return domain.MarketDetail{}, domain.ErrInvalidMarketID
	}
	ctx, span := s.tracer.Start(ctx, "GetMarket", trace.WithAttributes(attribute.Int64("market_id", marketID)))
	defer span.End()

	info, err := s.repo.GetMarket(ctx, marketID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.MarketDetail{}, err
	}
	today := s.today()
	events, err := s.repo.UpcomingEvents(ctx, marketID, today)
	if err != nil {
		span.RecordError(err)
		return domain.MarketDetail{}, fmt.Errorf("upcoming events: %w", err)
	}
	vendors, err := s.repo.MarketVendors(ctx, marketID)
	if err != nil {
		span.RecordError(err)
		return domain.MarketDetail{}, fmt.Errorf("market vendors: %w", err)
	}
	return domain.MarketDetail{Market: info, Events: events, Vendors: vendors}, nil
}

// SearchProducts finds in-stock products whose name contains q, ignoring case.
func (s *Service) SearchProducts(ctx context.Context, q string) ([]domain.ProductHit, error) {
	term := strings.TrimSpace(q)
	if term == "" {
		return []domain.ProductHit{}, nil
	}
	ctx, span := s.tracer.Start(ctx, "SearchProducts", trace.WithAttributes(attribute.String("term", term)))
	defer span.End()

	key := strings.ToLower(term)
	if s.cache != nil {
		hits, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("search cache read failed", "err", err)
		case ok:
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return hits, nil
		}
	}

	hits, err := s.repo.SearchProducts(ctx, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search products: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, hits); err != nil {
			s.log.Warn("search cache write failed", "err", err)
		}
	}
	return hits, nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
