// Package calendar holds the day arithmetic shared by the stores and the engines.
// Every stored day is a UTC calendar day spanning 00:00:00.000 to 23:59:59.999.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	// MaxSpanDays bounds every expanded date range and every quoted stay.
	MaxSpanDays = 730
)

var ErrInvalidDate = errors.New("invalid date")

var layouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
}

func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func EndOfDay(t time.Time) time.Time {
	return Day(t).Add(24*time.Hour - time.Millisecond) //nolint:gomnd
}

func Today(now time.Time) time.Time {
	return Day(now)
}

// Parse accepts a bare date or a timestamp and returns the calendar day it falls on.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty value: %w", ErrInvalidDate)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			// the day as written by the sender, not shifted to UTC
			y, m, d := t.Date()

			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("%q: %w", value, ErrInvalidDate)
}

// Nights is the number of nights between check-in and check-out days.
func Nights(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24) //nolint:gomnd
}

// StayDates lists every night of a stay, the check-out day excluded.
func StayDates(start, end time.Time) []time.Time {
	var dates []time.Time

	for d := Day(start); d.Before(Day(end)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	return dates
}

// Span lists every day of an inclusive range.
func Span(start, end time.Time) []time.Time {
	var dates []time.Time

	for d := Day(start); !d.After(Day(end)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	return dates
}

// Weekday returns the lowercase three letter key used by day-of-week flags.
func Weekday(t time.Time) string {
	return strings.ToLower(t.UTC().Weekday().String()[:3])
}

func Format(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
