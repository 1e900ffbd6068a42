package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/koreader-highlights/internal/window"
)

var (
	ErrMutuallyExclusive = errors.New("use --from/--to or --last, not both")
	ErrMissingFrom       = errors.New("use --from together with --to")
	ErrInvalidDate       = errors.New("invalid date format, expected YYYY-MM-DD")
)

// DateFlags are the raw window selectors. Last is nil when not given.
type DateFlags struct {
	From string
	To   string
	Last *int
}

// ResolveWindow turns the date selectors into a window relative to today.
//
//	--last N       today-N .. yesterday
//	--from         from .. yesterday
//	--from --to    from .. to
//	(nothing)      last Sunday .. yesterday
func ResolveWindow(f DateFlags, today window.Date) (window.Window, error) {
	hasRange := f.From != "" || f.To != ""
	if hasRange && f.Last != nil {
		return window.Window{}, ErrMutuallyExclusive
	}

	yesterday := today.AddDays(-1)

	if f.Last != nil {
		return window.New(today.AddDays(-*f.Last), yesterday)
	}

	if f.From == "" {
		if f.To != "" {
			return window.Window{}, ErrMissingFrom
		}
		return weekToDate(today), nil
	}

	from, err := parseDate(f.From)
	if err != nil {
		return window.Window{}, err
	}
	to := yesterday
	if f.To != "" {
		if to, err = parseDate(f.To); err != nil {
			return window.Window{}, err
		}
	}
	return window.New(from, to)
}

// weekToDate covers the previous Sunday through yesterday. On a Sunday it
// reaches back a full week.
func weekToDate(today window.Date) window.Window {
	sinceSunday := int(today.Weekday() - time.Sunday)
	if sinceSunday == 0 {
		sinceSunday = 7
	}
	return window.Window{From: today.AddDays(-sinceSunday), To: today.AddDays(-1)}
}

func parseDate(s string) (window.Date, error) {
	d, err := window.ParseDate(s)
	if err != nil {
		return window.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}
