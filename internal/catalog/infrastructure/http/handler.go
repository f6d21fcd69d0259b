package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/market-preorders/internal/catalog/domain"
	"github.com/dmehra2102/market-preorders/pkg/httpx"
)

type Service interface {
	ListMarkets(ctx context.Context) ([]domain.Market, error)
	GetMarket(ctx context.Context, marketID int64) (domain.MarketDetail, error)
	SearchProducts(ctx context.Context, q string) ([]domain.ProductHit, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/markets", h.listMarkets)
	r.Get("/markets/{id}", h.getMarket)
	r.Get("/searchProducts", h.searchProducts)
}

func (h *Handler) listMarkets(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListMarkets")
	defer span.End()

	markets, err := h.service.ListMarkets(ctx)
	if err != nil {
		h.log.Error("fetching markets", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to fetch markets")
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(markets))
}

func (h *Handler) getMarket(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetMarket")
	defer span.End()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid market id")
		return
	}
	detail, err := h.service.GetMarket(ctx, id)
	switch {
	case errors.Is(err, domain.ErrInvalidMarketID):
		httpx.Error(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid market id")
		return
	case errors.Is(err, domain.ErrMarketNotFound):
		httpx.Error(w, http.StatusNotFound, "NOT_FOUND", "Market not found")
		return
	case err != nil:
		h.log.Error("fetching market details", "err", err, "market_id", id)
		httpx.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to fetch market details")
		return
	}
	detail.Events = nonNil(detail.Events)
	detail.Vendors = nonNil(detail.Vendors)
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SearchProducts")
	defer span.End()

	hits, err := h.service.SearchProducts(ctx, r.URL.Query().Get("q"))
	if err != nil {
		h.log.Error("searching products", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to search products")
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(hits))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
