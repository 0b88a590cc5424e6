package middleware

import (
	"net/http"

	apperrors "smstudio/pkg/errors"
)

// MaxRequestSize caps request bodies. Declared oversize bodies are rejected
// up front; the rest fail on read with http.MaxBytesError.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeAppError(w, apperrors.New(apperrors.CodeInvalidInput, "request body too large", http.StatusRequestEntityTooLarge))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
