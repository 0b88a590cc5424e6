package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeSlotUnavailable = "SLOT_UNAVAILABLE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeTimeout         = "TIMEOUT"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	})
	return data
}

// ErrorResponse is the wire form of an AppError.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

var statusByCode = map[string]int{
	CodeNotFound:        http.StatusNotFound,
	CodeValidation:      http.StatusUnprocessableEntity,
	CodeSlotUnavailable: http.StatusUnprocessableEntity,
	CodeUnauthorized:    http.StatusUnauthorized,
	CodeForbidden:       http.StatusForbidden,
	CodeConflict:        http.StatusConflict,
	CodeInternal:        http.StatusInternalServerError,
	CodeBadRequest:      http.StatusBadRequest,
	CodeTimeout:         http.StatusGatewayTimeout,
	CodeUnavailable:     http.StatusServiceUnavailable,
	CodeInvalidInput:    http.StatusBadRequest,
	CodeTooManyRequests: http.StatusTooManyRequests,
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func newCoded(code, message string) *AppError {
	return New(code, message, statusByCode[code])
}

func NotFound(resource string) *AppError {
	return newCoded(CodeNotFound, resource+" not found")
}

func NotFoundWithID(resource, id string) *AppError {
	e := NotFound(resource)
	e.Details = map[string]any{"resource": resource, "id": id}
	return e
}

func Validation(message string, details map[string]any) *AppError {
	e := newCoded(CodeValidation, message)
	e.Details = details
	return e
}

// SlotUnavailable shares 422 with Validation but signals well formed input
// naming a slot that cannot be booked.
func SlotUnavailable(reason string) *AppError {
	e := newCoded(CodeSlotUnavailable, "slot unavailable")
	e.Details = map[string]any{"reason": reason}
	return e
}

func InvalidInput(message string) *AppError    { return newCoded(CodeInvalidInput, message) }
func Unauthorized(message string) *AppError    { return newCoded(CodeUnauthorized, message) }
func Forbidden(message string) *AppError       { return newCoded(CodeForbidden, message) }
func Conflict(message string) *AppError        { return newCoded(CodeConflict, message) }
func TooManyRequests(message string) *AppError { return newCoded(CodeTooManyRequests, message) }
func Timeout(message string) *AppError         { return newCoded(CodeTimeout, message) }

func Internal(message string, err error) *AppError {
	e := newCoded(CodeInternal, message)
	e.Err = err
	return e
}

func Unavailable(service string) *AppError {
	return newCoded(CodeUnavailable, fmt.Sprintf("%s is temporarily unavailable", service))
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
