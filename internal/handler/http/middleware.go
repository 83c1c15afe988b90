package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	idempotencyCachePrefix = "idempotency:"
	idempotencyLockPrefix  = "lock:"

	defaultIdempotencyTTL = 24 * time.Hour
	defaultLockTimeout    = 60 * time.Second
)

type IdempotencyOptions struct {
	CacheTTL    time.Duration
	LockTimeout time.Duration
}

// cachedResponse is what gets stored under the idempotency key.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated Idempotency-Key
// and answers 409 while a request with the same key is in flight. Requests
// without the header, or a nil client, pass straight through; the payouts
// table stays the source of truth either way.
func Idempotency(rdb *redis.Client, opts IdempotencyOptions, logger *slog.Logger) func(http.Handler) http.Handler {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultIdempotencyTTL
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if rdb == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := idempotencyCachePrefix + key
			lockKey := idempotencyLockPrefix + key
			log := logger.With("idempotency_key", key)

			if raw, err := rdb.Get(ctx, cacheKey).Bytes(); err == nil {
				var cached cachedResponse
				if err := json.Unmarshal(raw, &cached); err == nil {
					log.Info("idempotent replay", "event", "idempotency_hit")
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-Idempotency-Hit", "true")
					w.WriteHeader(cached.Status)
					_, _ = w.Write(cached.Body)
					return
				}
				log.Warn("discarding unreadable cached response", "event", "idempotency_cache_corrupt")
			} else if err != redis.Nil {
				// Redis trouble must not block payouts.
				log.Warn("idempotency cache unavailable", "event", "idempotency_cache_error", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "processing", opts.LockTimeout).Result()
			if err != nil {
				log.Warn("idempotency lock unavailable", "event", "idempotency_lock_error", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				log.Info("concurrent request with same key", "event", "idempotency_conflict")
				writeJSON(w, http.StatusConflict, errorResponse{
					Error:   "conflict",
					Message: "a request with this idempotency key is currently being processed",
				})
				return
			}
			// Releasing the lock and caching must happen even if the client has gone.
			detached := context.WithoutCancel(ctx)
			defer func() {
				if err := rdb.Del(detached, lockKey).Err(); err != nil {
					log.Warn("failed to release idempotency lock", "event", "idempotency_unlock_error", "error", err)
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}
			data, err := json.Marshal(cachedResponse{Status: rec.statusCode, Body: bytes.TrimSpace(rec.body.Bytes())})
			if err != nil {
				log.Warn("failed to encode response for cache", "event", "idempotency_cache_error", "error", err)
				return
			}
			if err := rdb.Set(detached, cacheKey, data, opts.CacheTTL).Err(); err != nil {
				log.Warn("failed to cache response", "event", "idempotency_cache_error", "error", err)
			}
		})
	}
}
