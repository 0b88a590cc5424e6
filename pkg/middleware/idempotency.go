package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"smstudio/pkg/logger"
)

const DefaultIdempotencyHeader = "Idempotency-Key"

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, response *CachedResponse)
	Stop()
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type memoryEntry struct {
	resp    *CachedResponse
	expires time.Time
}

// InMemoryIdempotencyStore keeps responses in process. Expired entries are
// swept on a ticker and ignored on read.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweep(sweepInterval(ttl))
	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > time.Hour {
		return time.Hour
	}
	return ttl
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(s.entries, key)
		return nil, false
	}
	return e.resp, true
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, resp *CachedResponse) {
	now := time.Now()
	resp.CreatedAt = now

	s.mu.Lock()
	s.entries[key] = memoryEntry{resp: resp, expires: now.Add(s.ttl)}
	s.mu.Unlock()
}

func (s *InMemoryIdempotencyStore) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expires) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

// RedisIdempotencyStore shares cached responses between API replicas.
type RedisIdempotencyStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		rdb:    rdb,
		ttl:    ttl,
		prefix: "idempotency:",
		log:    log,
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx, s.log).Warn("Idempotency lookup failed", "key", key, "error", err)
		}
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		logger.FromContext(ctx, s.log).Warn("Discarding corrupt idempotency entry", "key", key, "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		logger.FromContext(ctx, s.log).Warn("Failed to encode idempotency entry", "key", key, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		logger.FromContext(ctx, s.log).Warn("Failed to store idempotency entry", "key", key, "error", err)
	}
}

// Stop is a no-op; the shared client is closed by the storage layer.
func (s *RedisIdempotencyStore) Stop() {}

// responseCapture tees the response body so a successful reply can be stored.
type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rc *responseCapture) WriteHeader(status int) {
	rc.status = status
	rc.ResponseWriter.WriteHeader(status)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response when a mutating request repeats
// its idempotency key. Keys are scoped to the actor and route.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(headerName)
			if raw == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			key := scopedKey(r, raw)
			if cached, ok := store.Get(r.Context(), key); ok {
				replay(w, cached)
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status < 200 || capture.status >= 300 {
				return
			}
			store.Set(context.WithoutCancel(r.Context()), key, &CachedResponse{
				StatusCode: capture.status,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			})
		})
	}
}

func scopedKey(r *http.Request, key string) string {
	actorID := "anonymous"
	if actor, ok := ActorFromContext(r.Context()); ok {
		actorID = actor.ID
	}
	return actorID + "|" + r.Method + "|" + r.URL.Path + "|" + key
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
