package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmehra2102/market-preorders/pkg/httpx"
)

const HeaderKey = "Idempotency-Key"

type RecordStore interface {
	Begin(ctx context.Context, key string, rec Record, processingTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Finish(ctx context.Context, key string, rec Record) error
	Abort(ctx context.Context, key string) error
}

// Middleware replays the stored response for a repeated Idempotency-Key. Requests without
// the header pass through untouched, and store failures fail open.
func Middleware(log *slog.Logger, store RecordStore, processingTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				httpx.Error(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := requestHash(r, body)

			claimed, err := store.Begin(ctx, key, Record{Status: StatusProcessing, RequestHash: hash}, processingTTL)
			if err != nil {
				log.Warn("idempotency store unavailable", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				replay(ctx, w, log, store, key, hash)
				return
			}

			rec := &recorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Server errors are not stored so the client may retry with the same key.
			if rec.code >= http.StatusInternalServerError {
				if err := store.Abort(ctx, key); err != nil {
					log.Warn("idempotency abort failed", "err", err)
				}
				return
			}
			done := Record{Status: StatusCompleted, RequestHash: hash, Code: rec.code, Body: rec.body.Bytes()}
			if err := store.Finish(ctx, key, done); err != nil {
				log.Warn("idempotency finish failed", "err", err)
			}
		})
	}
}

func replay(ctx context.Context, w http.ResponseWriter, log *slog.Logger, store RecordStore, key, hash string) {
	existing, err := store.Get(ctx, key)
	if err != nil || existing == nil {
		if err != nil {
			log.Warn("idempotency lookup failed", "err", err)
		}
		httpx.Error(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed")
		return
	}
	if existing.RequestHash != hash {
		httpx.Error(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with a different request")
		return
	}
	if existing.Status != StatusCompleted {
		httpx.Error(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(existing.Code)
	_, _ = w.Write(existing.Body)
}

func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte(r.URL.Path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type recorder struct {
	http.ResponseWriter
	code int
	body bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
