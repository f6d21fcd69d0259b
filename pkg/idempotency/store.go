package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Record is the stored outcome of a request carrying an Idempotency-Key.
type Record struct {
	Status      Status `json:"status"`
	RequestHash string `json:"request_hash"`
	Code        int    `json:"code,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// Seen marks key as processed and reports whether it already was.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func requestKey(key string) string { return "idem:http:" + key }

// Begin claims key for an in-flight request. It returns false when the key is already claimed.
func (s *Store) Begin(ctx context.Context, key string, rec Record, processingTTL time.Duration) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, requestKey(key), raw, processingTTL).Result()
}

// Get returns the record for key, or nil when none exists.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, requestKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) Finish(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, requestKey(key), raw, s.ttl).Err()
}

func (s *Store) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, requestKey(key)).Err()
}
