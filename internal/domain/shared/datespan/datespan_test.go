package datespan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewNormalizesToUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	span, err := New(
		time.Date(2025, time.June, 10, 23, 45, 0, 0, loc),
		time.Date(2025, time.June, 15, 1, 15, 0, 0, loc),
	)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.June, 10), span.Start)
	assert.Equal(t, date(2025, time.June, 14), span.End)
}

func TestNewRejectsEndBeforeStart(t *testing.T) {
	_, err := New(date(2025, time.June, 15), date(2025, time.June, 10))
	assert.ErrorIs(t, err, ErrInvalidSpan)
}

func TestSingleDaySpanIsValid(t *testing.T) {
	span, err := New(date(2025, time.June, 10), date(2025, time.June, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, span.Days())
}

func TestDays(t *testing.T) {
	span := Must(date(2025, time.June, 10), date(2025, time.June, 15))
	assert.Equal(t, 6, span.Days())
}

func TestOverlapsSharedBoundary(t *testing.T) {
	a := Must(date(2025, time.June, 10), date(2025, time.June, 15))
	b := Must(date(2025, time.June, 15), date(2025, time.June, 20))
	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
}

func TestOverlapsDisjoint(t *testing.T) {
	a := Must(date(2025, time.June, 10), date(2025, time.June, 15))
	b := Must(date(2025, time.June, 16), date(2025, time.June, 20))
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
}

func TestOverlapsContained(t *testing.T) {
	outer := Must(date(2025, time.June, 1), date(2025, time.June, 30))
	inner := Must(date(2025, time.June, 10), date(2025, time.June, 12))
	assert.True(t, outer.Overlaps(inner))
	assert.True(t, inner.Overlaps(outer))
}

func TestContainsDate(t *testing.T) {
	span := Must(date(2025, time.June, 10), date(2025, time.June, 15))
	assert.True(t, span.ContainsDate(date(2025, time.June, 10)))
	assert.True(t, span.ContainsDate(date(2025, time.June, 15)))
	assert.False(t, span.ContainsDate(date(2025, time.June, 16)))
	assert.True(t, span.ContainsDate(time.Date(2025, time.June, 12, 18, 0, 0, 0, time.UTC)))
}

func TestClampDays(t *testing.T) {
	span := Must(date(2025, time.June, 1), date(2025, time.June, 30))
	clamped := span.ClampDays(7)
	assert.Equal(t, date(2025, time.June, 1), clamped.Start)
	assert.Equal(t, date(2025, time.June, 7), clamped.End)
	assert.Equal(t, span, span.ClampDays(0))
	assert.Equal(t, span, span.ClampDays(60))
}
