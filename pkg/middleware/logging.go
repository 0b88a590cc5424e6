package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/logger"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"

	RequestIDHeader = "X-Request-ID"
)

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func writeAppError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	_, _ = w.Write(err.ToJSON())
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(status int) {
	if rw.status == 0 {
		rw.status = status
		rw.ResponseWriter.WriteHeader(status)
	}
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// RequestLogging assigns a request id, stores a request scoped logger in the
// context and logs one line per completed request.
func RequestLogging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLog := log.With("request_id", requestID)
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			r = r.WithContext(logger.IntoContext(ctx, reqLog))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			switch {
			case rec.status >= http.StatusInternalServerError:
				reqLog.Error("HTTP request completed", attrs...)
			case rec.status >= http.StatusBadRequest:
				reqLog.Warn("HTTP request completed", attrs...)
			default:
				reqLog.Info("HTTP request completed", attrs...)
			}
		})
	}
}
