package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/market-preorders/internal/catalog/domain"
)

type fakeClient struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeClient) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	cmd.SetVal(n)
	return cmd
}

func TestSearchCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeClient()
	cache := NewSearchCache(rdb, 30*time.Second)

	_, ok, err := cache.Get(ctx, "honey")
	require.NoError(t, err)
	assert.False(t, ok)

	hits := []domain.ProductHit{{ProductID: 7, ProductName: "Wildflower Honey", QtyAvailable: 3}}
	require.NoError(t, cache.Set(ctx, "honey", hits))
	assert.Equal(t, 30*time.Second, rdb.ttls["catalog:search:0:honey"])

	got, ok, err := cache.Get(ctx, "honey")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, hits[0].ProductName, got[0].ProductName)
}

func TestSearchCache_EmptyResultIsCached(t *testing.T) {
	ctx := context.Background()
	cache := NewSearchCache(newFakeClient(), time.Minute)

	require.NoError(t, cache.Set(ctx, "kale", nil))
	got, ok, err := cache.Get(ctx, "kale")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSearchCache_InvalidateBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeClient()
	cache := NewSearchCache(rdb, time.Minute)

	require.NoError(t, cache.Set(ctx, "honey", []domain.ProductHit{{ProductID: 7}}))
	require.NoError(t, cache.Invalidate(ctx))
	assert.Equal(t, "1", rdb.data[GenerationKey])

	_, ok, err := cache.Get(ctx, "honey")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchCache_ClientError(t *testing.T) {
	rdb := newFakeClient()
	rdb.err = errors.New("dial tcp: connection refused")
	cache := NewSearchCache(rdb, time.Minute)

	_, _, err := cache.Get(context.Background(), "honey")
	assert.Error(t, err)
}
