package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "smstudio/pkg/errors"
)

// guardedWriter lets exactly one party answer: the handler, or the timeout.
type guardedWriter struct {
	w       http.ResponseWriter
	mu      sync.Mutex
	header  http.Header
	expired bool
	started bool
}

func (g *guardedWriter) Header() http.Header {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		if g.header == nil {
			g.header = http.Header{}
		}
		return g.header
	}
	return g.w.Header()
}

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired || g.started {
		return
	}
	g.started = true
	g.w.WriteHeader(code)
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		return 0, http.ErrHandlerTimeout
	}
	g.started = true
	return g.w.Write(b)
}

// expire reports whether the timeout response may still be written.
func (g *guardedWriter) expire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = true
	return !g.started
}

// RequestTimeout bounds the request context. Repositories derive their Mongo
// deadlines from it, so a slow query is cancelled rather than left running.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			gw := &guardedWriter{w: w}
			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
					close(done)
				}()
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				// Re-raise on the serving goroutine so Recovery sees it.
				select {
				case p := <-panicked:
					panic(p)
				default:
				}
			case <-ctx.Done():
				if gw.expire() {
					writeAppError(w, apperrors.Timeout("Request timeout"))
				}
			}
		})
	}
}
