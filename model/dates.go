package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Placeholder is shown in place of a missing or unreadable date
const Placeholder = "—"

const (
	dateLayout      = "Jan 2, 2006"
	dateTimeLayout  = "Jan 2, 2006, 3:04 PM"
	shortDateLayout = "Jan 2"
	isoLayout       = "2006-01-02T15:04:05.000Z07:00"
)

// ParseDate reads the timestamp formats Augur emits: RFC 3339 with or
// without fractional seconds, zone-less ISO date-times and plain dates.
// Zone-less values are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty value: %w", ErrInvalidDate)
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidDate)
	}
	return t, nil
}

// FormatDate renders s like "Nov 21, 2025"
func FormatDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return Placeholder
	}
	return t.Format(dateLayout)
}

// FormatDateTime renders s like "Nov 21, 2025, 3:45 PM"
func FormatDateTime(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return Placeholder
	}
	return t.Format(dateTimeLayout)
}

// FormatRelativeTime renders s relative to now: "just now", "5m ago",
// "3h ago", "2d ago", and a short date such as "Nov 21" once it is a week
// old or more
func FormatRelativeTime(s string, now time.Time) string {
	t, err := ParseDate(s)
	if err != nil {
		return Placeholder
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
	return t.Format(shortDateLayout)
}

// ToISOString converts s to UTC RFC 3339 with millisecond precision, the
// form Augur expects for finder start and end dates
func ToISOString(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(isoLayout), nil
}
