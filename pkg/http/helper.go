package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"smstudio/pkg/config"
	apperrors "smstudio/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// DecodeJSON decodes the request body into dst. An empty body is accepted and
// leaves dst untouched.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.New(apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
	}
	return apperrors.InvalidInput("Invalid request body")
}

// QueryParam returns the first non-empty value among the given keys, so both
// camelCase and snake_case query names are honoured.
func QueryParam(r *http.Request, keys ...string) string {
	query := r.URL.Query()
	for _, k := range keys {
		if v := strings.TrimSpace(query.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// QueryList splits a comma separated query value, dropping blanks.
func QueryList(r *http.Request, keys ...string) []string {
	raw := QueryParam(r, keys...)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
