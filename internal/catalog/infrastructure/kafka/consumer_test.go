package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dmehra2102/market-preorders/pkg/outbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type countingCache struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDeduper) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s:%d:%d", topic, partition, offset)
}

func (d *memDeduper) Seen(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return true, nil
	}
	d.seen[key] = true
	return false, nil
}

func message(offset int64, eventType string) kafka.Message {
	return kafka.Message{
		Topic:   "inventory.events",
		Offset:  offset,
		Key:     []byte("42"),
		Headers: []kafka.Header{{Key: outbox.HeaderEventType, Value: []byte(eventType)}},
	}
}

func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.msgs) == 0 && len(r.committed) >= want
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_InvalidatesOnStockEvents(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		message(1, "PreorderPlaced"),
		message(2, "OrderCancelled"),
		message(3, "SomethingElse"),
	}}
	cache := &countingCache{}
	c := NewConsumer(slog.New(slog.DiscardHandler), r, cache, &memDeduper{seen: map[string]bool{}})

	runUntilDrained(t, c, r, 3)

	assert.Equal(t, 2, cache.calls)
	assert.Equal(t, []int64{1, 2, 3}, r.committed)
	assert.True(t, r.closed)
}

func TestConsumer_SkipsDuplicates(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(1, "PreorderPlaced"), message(1, "PreorderPlaced")}}
	cache := &countingCache{}
	c := NewConsumer(slog.New(slog.DiscardHandler), r, cache, &memDeduper{seen: map[string]bool{}})

	runUntilDrained(t, c, r, 2)

	assert.Equal(t, 1, cache.calls)
	assert.Len(t, r.committed, 2)
}

func TestConsumer_FailedInvalidationIsNotCommitted(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(1, "PreorderPlaced")}}
	cache := &countingCache{err: errors.New("redis down")}
	c := NewConsumer(slog.New(slog.DiscardHandler), r, cache, &memDeduper{seen: map[string]bool{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.calls == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, r.committed)
}
