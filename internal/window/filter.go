package window

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

var ErrInvalidRange = errors.New("invalid date range: from is after to")

// Window is an inclusive range of calendar days.
type Window struct {
	From Date
	To   Date
}

// New returns the window [from, to]. It never swaps its bounds.
func New(from, to Date) (Window, error) {
	if from.After(to) {
		return Window{}, fmt.Errorf("%w (%s > %s)", ErrInvalidRange, from, to)
	}
	return Window{From: from, To: to}, nil
}

// Contains reports whether the calendar day of t, read on t's own clock,
// lies inside the window.
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.From) && !d.After(w.To)
}

// Days returns the number of days covered, both ends included.
func (w Window) Days() int {
	return int(w.To.midnight().Sub(w.From.midnight()).Hours()/24) + 1
}

func (w Window) String() string {
	return w.From.String() + ".." + w.To.String()
}

// Filter yields, in input order, the highlights captured inside the window.
// The sequence is lazy and may be ranged over more than once.
func (w Window) Filter(highlights []entities.Highlight) iter.Seq[entities.Highlight] {
	return func(yield func(entities.Highlight) bool) {
		for _, h := range highlights {
			if !w.Contains(h.HighlightedAt) {
				continue
			}
			if !yield(h) {
				return
			}
		}
	}
}

// Filter is shorthand for New followed by Window.Filter.
func Filter(highlights []entities.Highlight, from, to Date) (iter.Seq[entities.Highlight], error) {
	w, err := New(from, to)
	if err != nil {
		return nil, err
	}
	return w.Filter(highlights), nil
}
