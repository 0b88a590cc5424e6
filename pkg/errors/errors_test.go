package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   Conflict("slot already taken"),
			expected: "CONFLICT: slot already taken",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("failed to persist booking", errors.New("connection reset")),
			expected: "INTERNAL_ERROR: failed to persist booking (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", Validation("bad time", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"slot unavailable", SlotUnavailable("not_in_availability"), CodeSlotUnavailable, http.StatusUnprocessableEntity},
		{"forbidden", Forbidden("only the artist may confirm"), CodeForbidden, http.StatusForbidden},
		{"not found", NotFoundWithID("Booking", "42"), CodeNotFound, http.StatusNotFound},
		{"conflict", Conflict("artist offline"), CodeConflict, http.StatusConflict},
		{"too many requests", TooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests},
		{"unavailable", Unavailable("notifications"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestSlotUnavailable_CarriesReason(t *testing.T) {
	err := SlotUnavailable("already_booked")
	if err.Details["reason"] != "already_booked" {
		t.Errorf("expected reason already_booked, got %v", err.Details["reason"])
	}
}

func TestAsAppError_UnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("transaction failed: %w", Conflict("slot already taken"))

	appErr := AsAppError(wrapped)
	if appErr.Code != CodeConflict {
		t.Errorf("expected CONFLICT, got %s", appErr.Code)
	}
	if !IsAppError(wrapped) {
		t.Error("IsAppError should see through wrapping")
	}
	if !HasCode(wrapped, CodeConflict) {
		t.Error("HasCode should match wrapped conflict")
	}
}

func TestAsAppError_UnknownBecomesInternal(t *testing.T) {
	original := errors.New("boom")
	appErr := AsAppError(original)

	if appErr.Code != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", appErr.Code)
	}
	if !errors.Is(appErr, original) {
		t.Error("internal error should wrap the original")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	data := NotFoundWithID("Offering", "off-1").ToJSON()

	var resp ErrorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "Offering not found" {
		t.Errorf("unexpected message %q", resp.Error)
	}
	if resp.Details["id"] != "off-1" {
		t.Errorf("expected id detail off-1, got %v", resp.Details["id"])
	}
}

func TestStatusCode_DefaultsToInternal(t *testing.T) {
	err := &AppError{Code: "CUSTOM", Message: "x"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.StatusCode())
	}
}
