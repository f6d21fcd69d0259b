package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
	"github.com/dmehra2102/market-preorders/pkg/httpx"
)

type Service interface {
	Reserve(ctx context.Context, req domain.ReserveRequest) (domain.Reservation, error)
	Cancel(ctx context.Context, orderID, userID int64) error
	ListOrders(ctx context.Context, userID int64) ([]domain.OrderSummary, error)
}

type Handler struct {
	log       *slog.Logger
	service   Service
	userID    int64
	reserveMW []func(http.Handler) http.Handler
	tracer    trace.Tracer
}

type Option func(*Handler)

// WithReserveMiddleware wraps only the pre-order endpoint, e.g. with idempotency replay.
func WithReserveMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.reserveMW = append(h.reserveMW, mw...) }
}

// NewHandler serves requests on behalf of a fixed user; there is no authentication layer.
func NewHandler(log *slog.Logger, service Service, userID int64, opts ...Option) *Handler {
	h := &Handler{
		log:     log,
		service: service,
		userID:  userID,
		tracer:  otel.Tracer("reservation-http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.reserveMW...).Post("/preorders", h.reserve)
	r.Get("/orders", h.listOrders)
	r.Post("/orders/{id}/cancel", h.cancel)
}

type reserveReq struct {
	EventID   flexInt `json:"eventId"`
	ProductID flexInt `json:"productId"`
	Quantity  flexInt `json:"quantity"`
}

type reserveResp struct {
	Success   bool        `json:"success"`
	OrderID   int64       `json:"orderId"`
	Total     json.Number `json:"total"`
	UnitPrice json.Number `json:"unitPrice"`
}

type cancelResp struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"orderId"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ReservePreorder")
	defer span.End()

	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "BAD_REQUEST", "eventId, productId and quantity must be integers")
		return
	}

	res, err := h.service.Reserve(ctx, domain.ReserveRequest{
		EventID:   int64(req.EventID),
		ProductID: int64(req.ProductID),
		Quantity:  int(req.Quantity),
		UserID:    h.userID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, reserveResp{
		Success:   true,
		OrderID:   res.OrderID,
		Total:     json.Number(res.Total.StringFixed(2)),
		UnitPrice: json.Number(res.UnitPrice.StringFixed(2)),
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.service.ListOrders(ctx, h.userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if orders == nil {
		orders = []domain.OrderSummary{}
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "BAD_REQUEST", "order id must be a positive integer")
		return
	}
	if err := h.service.Cancel(ctx, id, h.userID); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cancelResp{Success: true, OrderID: id})
}

// fail maps the error taxonomy onto HTTP; only client errors expose their message.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		httpx.Error(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case domain.IsNotFound(err):
		httpx.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		httpx.Error(w, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error())
	case errors.Is(err, domain.ErrNotCancellable):
		httpx.Error(w, http.StatusConflict, "NOT_CANCELLABLE", err.Error())
	case domain.IsTransient(err):
		w.Header().Set("Retry-After", "1")
		httpx.Error(w, http.StatusServiceUnavailable, "TRANSIENT", "Service busy, please retry")
	default:
		h.log.Error("request failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}

// flexInt accepts a JSON integer or a string holding one.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	*f = flexInt(n)
	return nil
}
