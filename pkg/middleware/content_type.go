package middleware

import (
	"mime"
	"net/http"

	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/logger"
)

const jsonContentType = "application/json"

// ContentTypeValidation requires a JSON body on writes that carry one.
// Bodyless POSTs such as /complete pass through.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != jsonContentType {
				logger.FromContext(r.Context(), log).Warn("Invalid Content-Type header",
					"content_type", r.Header.Get("Content-Type"),
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeAppError(w, apperrors.New(apperrors.CodeInvalidInput, "Content-Type must be application/json", http.StatusUnsupportedMediaType))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	}
	return false
}
