package koreader

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/koreader-highlights/internal/luatable"
)

var (
	errUnknownLayout = errors.New("unrecognized timestamp format")
	errNotPositive   = errors.New("epoch timestamp must be positive")
)

// parseTimestamp converts a timestamp field into device wall-clock time.
// The result always carries the UTC location: its clock fields are the
// ones the reader displayed, not an instant in UTC.
func parseTimestamp(v luatable.Value, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case luatable.String:
		s := strings.TrimSpace(string(t))
		if isDigits(s) {
			return parseEpoch(luatable.Number{Text: s}, loc)
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return wallClock(parsed), nil
			}
		}
		return time.Time{}, errUnknownLayout
	case luatable.Number:
		return parseEpoch(t, loc)
	default:
		return time.Time{}, errors.New("expected a string or number, found " + v.Kind().String())
	}
}

func parseEpoch(n luatable.Number, loc *time.Location) (time.Time, error) {
	var instant time.Time
	if i, err := n.Int64(); err == nil {
		if i <= 0 {
			return time.Time{}, errNotPositive
		}
		if i > millisecondEpochThreshold {
			instant = time.UnixMilli(i)
		} else {
			instant = time.Unix(i, 0)
		}
	} else {
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, err
		}
		if f <= 0 {
			return time.Time{}, errNotPositive
		}
		if f > millisecondEpochThreshold {
			f /= 1000
		}
		sec := int64(f)
		instant = time.Unix(sec, int64((f-float64(sec))*1e9))
	}
	return wallClock(instant.In(loc)), nil
}

// wallClock keeps the clock fields of t and drops its zone.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// describe renders a scalar for error messages.
func describe(v luatable.Value) string {
	switch t := v.(type) {
	case luatable.String:
		return string(t)
	case luatable.Number:
		return t.Text
	case luatable.Bool:
		return strconv.FormatBool(bool(t))
	case nil:
		return ""
	default:
		return v.Kind().String()
	}
}
