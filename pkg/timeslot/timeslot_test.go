package timeslot

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeTimes_DedupPadSort(t *testing.T) {
	got, err := NormalizeTimes([]string{"9:5", "09:05", "9:05"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"09:05"}) {
		t.Errorf("expected [09:05], got %v", got)
	}
}

func TestNormalizeTimes_Sorted(t *testing.T) {
	got, err := NormalizeTimes([]string{" 14:00", "9:00", "10:30 ", "09:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:00", "10:30", "14:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeTime_Invalid(t *testing.T) {
	tests := []struct {
		input   string
		wantErr error
	}{
		{"24:00", ErrTimeOutOfRange},
		{"12:60", ErrTimeOutOfRange},
		{"9am", ErrInvalidTime},
		{"", ErrInvalidTime},
		{"123:00", ErrInvalidTime},
		{"12:00:00", ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NormalizeTime(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNormalizeTimes_OneBadEntryFailsAll(t *testing.T) {
	if _, err := NormalizeTimes([]string{"09:00", "25:00"}); err == nil {
		t.Error("expected error for out of range entry")
	}
}

func TestMergeAndSubtract(t *testing.T) {
	merged := Merge([]string{"09:00", "11:00"}, []string{"10:00", "09:00"})
	if !reflect.DeepEqual(merged, []string{"09:00", "10:00", "11:00"}) {
		t.Errorf("unexpected merge result: %v", merged)
	}

	left := Subtract(merged, []string{"10:00", "12:00"})
	if !reflect.DeepEqual(left, []string{"09:00", "11:00"}) {
		t.Errorf("unexpected subtract result: %v", left)
	}

	if empty := Subtract([]string{"09:00"}, []string{"09:00"}); len(empty) != 0 || empty == nil {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestCanonicalDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025-06-01", "2025-06-01"},
		{"2025-06-01T10:00:00+07:00", "2025-06-01"},
		{"2025-06-01 00:00:00", "2025-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := CanonicalDate(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := CanonicalDate("01/06/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateRange(t *testing.T) {
	got, err := DateRange("2025-02-27", "2025-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := DateRange("2025-03-02", "2025-03-01"); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := DateRange("2025-01-01", "2026-06-01"); !errors.Is(err, ErrRangeTooLarge) {
		t.Errorf("expected ErrRangeTooLarge, got %v", err)
	}
}

func TestWeekdayKey(t *testing.T) {
	d := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday
	if got := WeekdayKey(d); got != "mon" {
		t.Errorf("expected mon, got %s", got)
	}
	if got := WeekdayKey(d.AddDate(0, 0, 6)); got != "sun" {
		t.Errorf("expected sun, got %s", got)
	}
}
