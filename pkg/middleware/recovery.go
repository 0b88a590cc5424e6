package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/logger"
)

// Recovery turns a handler panic into a 500 without echoing the panic value.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("Panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				writeAppError(w, apperrors.Internal("Internal server error", nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
