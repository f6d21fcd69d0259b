package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/market-preorders/internal/catalog/domain"
)

type mockService struct {
	ListMarketsFn    func(ctx context.Context) ([]domain.Market, error)
	GetMarketFn      func(ctx context.Context, marketID int64) (domain.MarketDetail, error)
	SearchProductsFn func(ctx context.Context, q string) ([]domain.ProductHit, error)
}

func (m *mockService) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	return m.ListMarketsFn(ctx)
}

func (m *mockService) GetMarket(ctx context.Context, marketID int64) (domain.MarketDetail, error) {
	return m.GetMarketFn(ctx, marketID)
}

func (m *mockService) SearchProducts(ctx context.Context, q string) ([]domain.ProductHit, error) {
	return m.SearchProductsFn(ctx, q)
}

func get(t *testing.T, svc Service, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewHandler(slog.New(slog.DiscardHandler), svc).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListMarkets(t *testing.T) {
	city := "Portland"
	next := time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)
	svc := &mockService{ListMarketsFn: func(ctx context.Context) ([]domain.Market, error) {
		return []domain.Market{{MarketID: 1, MarketName: "Riverside", City: &city, NextEventDate: &next}}, nil
	}}

	rec := get(t, svc, "/markets")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Riverside", out[0]["marketName"])
	assert.Equal(t, "Portland", out[0]["city"])
	assert.Equal(t, "2026-05-09T00:00:00Z", out[0]["nextEventDate"])
	assert.Nil(t, out[0]["openTime"])
}

func TestListMarkets_Failure(t *testing.T) {
	svc := &mockService{ListMarketsFn: func(ctx context.Context) ([]domain.Market, error) {
		return nil, errors.New("connection refused")
	}}
	rec := get(t, svc, "/markets")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch markets")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestGetMarket(t *testing.T) {
	svc := &mockService{GetMarketFn: func(ctx context.Context, marketID int64) (domain.MarketDetail, error) {
		if marketID == 4 {
			return domain.MarketDetail{Market: domain.MarketInfo{MarketID: 4, Name: "Riverside"}}, nil
		}
		return domain.MarketDetail{}, domain.ErrMarketNotFound
	}}

	rec := get(t, svc, "/markets/4")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []any{}, out["events"])
	assert.Equal(t, []any{}, out["vendors"])

	rec = get(t, svc, "/markets/5")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Market not found")

	rec = get(t, svc, "/markets/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid market id")
}

func TestSearchProducts(t *testing.T) {
	var gotQ string
	svc := &mockService{SearchProductsFn: func(ctx context.Context, q string) ([]domain.ProductHit, error) {
		gotQ = q
		if q == "" {
			return nil, nil
		}
		return []domain.ProductHit{{ProductID: 7, ProductName: "Wildflower Honey", QtyAvailable: 3}}, nil
	}}

	rec := get(t, svc, "/searchProducts?q=honey")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "honey", gotQ)
	assert.Contains(t, rec.Body.String(), `"qtyAvailable":3`)

	rec = get(t, svc, "/searchProducts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
