package window

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

func highlightAt(text string, ts string) entities.Highlight {
	t, err := time.Parse("2006-01-02 15:04:05", ts)
	if err != nil {
		panic(err)
	}
	return entities.Highlight{Text: text, HighlightedAt: t}
}

func texts(seq func(func(entities.Highlight) bool)) []string {
	var out []string
	for h := range seq {
		out = append(out, h.Text)
	}
	return out
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestFilter_InclusiveBounds(t *testing.T) {
	highlights := []entities.Highlight{
		highlightAt("before", "2026-01-11 23:59:59"),
		highlightAt("first day start", "2026-01-12 00:00:00"),
		highlightAt("middle", "2026-01-14 12:00:00"),
		highlightAt("last day end", "2026-01-18 23:59:59"),
		highlightAt("after", "2026-01-19 00:00:00"),
	}

	seq, err := Filter(highlights, mustDate(t, "2026-01-12"), mustDate(t, "2026-01-18"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first day start", "middle", "last day end"}, texts(seq))
}

func TestFilter_PreservesInputOrder(t *testing.T) {
	highlights := []entities.Highlight{
		highlightAt("c", "2026-01-15 10:00:00"),
		highlightAt("a", "2026-01-13 10:00:00"),
		highlightAt("b", "2026-01-15 10:00:00"),
	}

	seq, err := Filter(highlights, mustDate(t, "2026-01-12"), mustDate(t, "2026-01-18"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, texts(seq))
}

func TestFilter_SingleDayWindow(t *testing.T) {
	highlights := []entities.Highlight{
		highlightAt("yes", "2026-02-01 00:00:01"),
		highlightAt("no", "2026-02-02 00:00:01"),
	}

	day := mustDate(t, "2026-02-01")
	seq, err := Filter(highlights, day, day)
	require.NoError(t, err)
	assert.Equal(t, []string{"yes"}, texts(seq))
}

func TestFilter_InvalidRange(t *testing.T) {
	_, err := Filter(nil, mustDate(t, "2026-01-18"), mustDate(t, "2026-01-12"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(mustDate(t, "2026-01-18"), mustDate(t, "2026-01-12"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFilter_Restartable(t *testing.T) {
	highlights := []entities.Highlight{
		highlightAt("a", "2026-01-13 10:00:00"),
		highlightAt("b", "2026-01-14 10:00:00"),
	}

	seq, err := Filter(highlights, mustDate(t, "2026-01-12"), mustDate(t, "2026-01-18"))
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestFilter_StopsEarly(t *testing.T) {
	highlights := []entities.Highlight{
		highlightAt("a", "2026-01-13 10:00:00"),
		highlightAt("b", "2026-01-14 10:00:00"),
		highlightAt("c", "2026-01-15 10:00:00"),
	}

	seq, err := Filter(highlights, mustDate(t, "2026-01-12"), mustDate(t, "2026-01-18"))
	require.NoError(t, err)

	var seen []string
	for h := range seq {
		seen = append(seen, h.Text)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestWindow_ContainsUsesCapturedClock(t *testing.T) {
	w, err := New(mustDate(t, "2026-01-12"), mustDate(t, "2026-01-12"))
	require.NoError(t, err)

	// 23:30 on the device in UTC-5 is already the 13th in UTC.
	local := time.Date(2026, 1, 12, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.True(t, w.Contains(local))
	assert.False(t, w.Contains(local.UTC()))
}

func TestDate(t *testing.T) {
	d := mustDate(t, "2024-02-28")
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2023-12-31", mustDate(t, "2024-01-01").AddDays(-1).String())
	assert.Equal(t, time.Wednesday, d.Weekday())

	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.True(t, d.AddDays(1).After(d))

	_, err := ParseDate("2024-13-01")
	assert.Error(t, err)
	_, err = ParseDate("28/02/2024")
	assert.Error(t, err)

	w, err := New(mustDate(t, "2026-01-12"), mustDate(t, "2026-01-18"))
	require.NoError(t, err)
	assert.Equal(t, 7, w.Days())
	assert.Equal(t, "2026-01-12..2026-01-18", w.String())
}
