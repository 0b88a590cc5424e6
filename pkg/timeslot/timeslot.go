// Package timeslot normalizes the "HH:MM" slot strings and "YYYY-MM-DD" dates
// shared by the availability calendar and the booking ledger.
package timeslot

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const (
	DateLayout = "2006-01-02"

	// MaxRangeDays bounds range expansion for free-slot lookups and recurring templates.
	MaxRangeDays = 366
)

var (
	ErrInvalidTime     = errors.New("invalid time format, expected HH:MM")
	ErrTimeOutOfRange  = errors.New("time out of range")
	ErrInvalidDate     = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrInvalidRange    = errors.New("end date must not be before start date")
	ErrRangeTooLarge   = fmt.Errorf("date range exceeds %d days", MaxRangeDays)
	slotPattern        = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)
	looseDateParser    = &now.Config{TimeLocation: time.UTC, TimeFormats: []string{DateLayout, "2006-01-02 15:04:05", "2006-01-02 15:04"}}
	weekdayTemplateKey = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
)

// NormalizeTime trims s and returns it zero-padded as HH:MM.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	m := slotPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return "", fmt.Errorf("%w: %q", ErrTimeOutOfRange, s)
	}
	return fmt.Sprintf("%02d:%02d", h, mm), nil
}

// NormalizeTimes normalizes every entry, then de-duplicates and sorts the result.
// Any invalid entry fails the whole list.
func NormalizeTimes(times []string) ([]string, error) {
	seen := make(map[string]struct{}, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		n, err := NormalizeTime(t)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// Merge returns the sorted union of two normalized slot lists.
func Merge(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	return keys(set)
}

// Subtract returns the sorted elements of a that are not in b.
func Subtract(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, s := range b {
		drop[s] = struct{}{}
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := drop[s]; !ok {
			set[s] = struct{}{}
		}
	}
	return keys(set)
}

// Contains reports whether slot is present in the normalized list.
func Contains(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ParseDate parses a canonical YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// CanonicalDate accepts a bare date, an RFC3339 timestamp or a
// "YYYY-MM-DD hh:mm[:ss]" datetime and returns the YYYY-MM-DD form.
func CanonicalDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), nil
	}
	t, err := looseDateParser.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.Format(DateLayout), nil
}

// DateRange expands [from, to] into canonical dates, one per calendar day.
func DateRange(from, to string) ([]string, error) {
	start, err := ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > MaxRangeDays {
		return nil, ErrRangeTooLarge
	}

	dates := make([]string, 0, days)
	for d := now.With(start).BeginningOfDay(); !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, FormatDate(d))
	}
	return dates, nil
}

// WeekdayKey maps a date to the recurring template key ("mon".."sun").
func WeekdayKey(t time.Time) string {
	return weekdayTemplateKey[t.Weekday()]
}

// Today returns the current UTC date.
func Today() string {
	return FormatDate(now.With(time.Now().UTC()).BeginningOfDay())
}

// AddDays shifts the beginning of t's day by n days.
func AddDays(t time.Time, n int) time.Time {
	return now.With(t).BeginningOfDay().AddDate(0, 0, n)
}
