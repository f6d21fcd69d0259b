package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
	"github.com/dmehra2102/market-preorders/pkg/outbox"
	"github.com/dmehra2102/market-preorders/pkg/tracing"
)

// DefaultFallbackUnitPrice applies to products that have never been ordered.
var DefaultFallbackUnitPrice = decimal.RequireFromString("5.00")

const eventSource = "market-service"

type Service struct {
	log           *slog.Logger
	store         Store
	orders        OrderReader
	fallbackPrice decimal.Decimal
	now           func() time.Time
	tracer        trace.Tracer
}

type Option func(*Service)

func WithFallbackUnitPrice(p decimal.Decimal) Option {
	return func(s *Service) { s.fallbackPrice = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(log *slog.Logger, store Store, orders OrderReader, opts ...Option) *Service {
	s := &Service{
		log:           log,
		store:         store,
		orders:        orders,
		fallbackPrice: DefaultFallbackUnitPrice,
		now:           time.Now,
		tracer:        otel.Tracer("reservation-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve converts available stock on one inventory line into a pre-order. The line's row
// lock is held from the remaining-stock check until commit, so concurrent calls on the
// same line are serialized and can never oversell it.
func (s *Service) Reserve(ctx context.Context, req domain.ReserveRequest) (domain.Reservation, error) {
	if err := req.Validate(); err != nil {
		return domain.Reservation{}, err
	}

	ctx, span := s.tracer.Start(ctx, "Reserve", trace.WithAttributes(
		attribute.Int64("event_id", req.EventID),
		attribute.Int64("product_id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	))
	defer span.End()

	res, err := s.reserve(ctx, req)
	if err != nil {
		s.record(span, err)
		return domain.Reservation{}, err
	}
	span.SetAttributes(attribute.Int64("order_id", res.OrderID))
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (s *Service) reserve(ctx context.Context, req domain.ReserveRequest) (domain.Reservation, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	line, err := tx.LockInventoryLine(ctx, req.EventID, req.ProductID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if remaining := line.Remaining(); remaining < req.Quantity {
		return domain.Reservation{}, &domain.InsufficientStockError{Remaining: remaining}
	}

	unitPrice, found, err := tx.LatestUnitPrice(ctx, req.ProductID)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("latest unit price: %w", err)
	}
	if !found {
		unitPrice = s.fallbackPrice
	}

	order := domain.NewOrder(req.UserID, req.EventID, s.now(), domain.OrderLine{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice,
	})
	orderID, err := tx.InsertOrder(ctx, order)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("insert order: %w", err)
	}
	orderLine := order.Lines[0]
	orderLine.OrderID = orderID
	if err := tx.InsertOrderLine(ctx, orderLine); err != nil {
		return domain.Reservation{}, fmt.Errorf("insert order line: %w", err)
	}
	if err := tx.AddReserved(ctx, line.ID, req.Quantity); err != nil {
		return domain.Reservation{}, fmt.Errorf("reserve stock: %w", err)
	}

	ev, err := s.event(ctx, orderID, domain.EventPreorderPlaced, domain.PreorderPlaced{
		OrderID:   orderID,
		UserID:    req.UserID,
		EventID:   req.EventID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice,
		Total:     order.TotalAmount,
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := tx.AppendOutbox(ctx, ev); err != nil {
		return domain.Reservation{}, fmt.Errorf("append outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, fmt.Errorf("commit: %w", err)
	}

	s.log.Info("preorder reserved",
		"order_id", orderID,
		"event_id", req.EventID,
		"product_id", req.ProductID,
		"quantity", req.Quantity,
		"remaining", line.Remaining()-req.Quantity,
	)
	return domain.Reservation{OrderID: orderID, UnitPrice: unitPrice, Total: order.TotalAmount}, nil
}

// Cancel releases an unpaid, pending order's reservations. Inventory lines are locked in
// product order under the same discipline as Reserve.
func (s *Service) Cancel(ctx context.Context, orderID, userID int64) error {
	if orderID <= 0 || userID <= 0 {
		return fmt.Errorf("%w: order id must be a positive integer", domain.ErrInvalidInput)
	}

	ctx, span := s.tracer.Start(ctx, "Cancel", trace.WithAttributes(attribute.Int64("order_id", orderID)))
	defer span.End()

	if err := s.cancel(ctx, orderID, userID); err != nil {
		s.record(span, err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Service) cancel(ctx context.Context, orderID, userID int64) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	order, err := tx.LockOrder(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if !order.Cancellable() {
		return domain.ErrNotCancellable
	}

	lines := slices.Clone(order.Lines)
	slices.SortFunc(lines, func(a, b domain.OrderLine) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})

	released := make([]domain.ReleasedLine, 0, len(lines))
	for _, l := range lines {
		inv, err := tx.LockInventoryLine(ctx, order.EventID, l.ProductID)
		if err != nil {
			return fmt.Errorf("lock inventory for product %d: %w", l.ProductID, err)
		}
		qty := min(l.Quantity, inv.ReservedQuantity)
		if qty == 0 {
			continue
		}
		if err := tx.AddReserved(ctx, inv.ID, -qty); err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
		released = append(released, domain.ReleasedLine{ProductID: l.ProductID, Quantity: qty})
	}

	if err := tx.SetPickupStatus(ctx, orderID, domain.PickupCancelled); err != nil {
		return fmt.Errorf("set pickup status: %w", err)
	}

	ev, err := s.event(ctx, orderID, domain.EventOrderCancelled, domain.OrderCancelled{
		OrderID:  orderID,
		UserID:   userID,
		EventID:  order.EventID,
		Released: released,
	})
	if err != nil {
		return err
	}
	if err := tx.AppendOutbox(ctx, ev); err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.log.Info("order cancelled", "order_id", orderID, "lines", len(released))
	return nil
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]domain.OrderSummary, error) {
	ctx, span := s.tracer.Start(ctx, "ListOrders")
	defer span.End()

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		s.record(span, err)
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) event(ctx context.Context, orderID int64, eventType string, payload any) (outbox.Event, error) {
	return outbox.NewEvent("order", strconv.FormatInt(orderID, 10), eventType, payload,
		map[string]string{"source": eventSource}, tracing.Traceparent(ctx))
}

func (s *Service) record(span trace.Span, err error) {
	if domain.IsClientError(err) {
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if !errors.Is(err, context.Canceled) {
		s.log.Error("reservation failed", "err", err, "transient", domain.IsTransient(err))
	}
}
