package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readyrent/internal/domain/booking"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
)

func testBooking(t *testing.T, status booking.Status, start, end time.Time, totalCents int64) *booking.Booking {
	t.Helper()
	b, err := booking.New(booking.CreateParams{
		ID:         "bk-1",
		ProductID:  "prod-1",
		Span:       datespan.Must(start, end),
		TotalPrice: money.Must(totalCents, "USD"),
		CreatedAt:  start.AddDate(0, 0, -30),
	})
	require.NoError(t, err)
	b.Status = status
	b.ClearEvents()
	return b
}

func TestFeePercentForTierTable(t *testing.T) {
	schedule := DefaultSchedule()
	cases := []struct {
		hours   int
		percent int
	}{
		{hours: 48, percent: 0},
		{hours: 24, percent: 0},
		{hours: 23, percent: 10},
		{hours: 12, percent: 10},
		{hours: 11, percent: 25},
		{hours: 6, percent: 25},
		{hours: 5, percent: 50},
		{hours: 0, percent: 50},
		{hours: -12, percent: 50},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.percent, schedule.FeePercentFor(tc.hours), "hours=%d", tc.hours)
	}
}

func TestFeePercentMonotonicallyIncreasesTowardStart(t *testing.T) {
	schedule := DefaultSchedule()
	prev := schedule.FeePercentFor(100)
	for hours := 99; hours >= -10; hours-- {
		cur := schedule.FeePercentFor(hours)
		assert.GreaterOrEqual(t, cur, prev, "fee dropped at hours=%d", hours)
		prev = cur
	}
}

func TestFeePercentForUnorderedSchedule(t *testing.T) {
	schedule := Schedule{
		{HoursBefore: 0, FeePercent: 50},
		{HoursBefore: 24, FeePercent: 0},
		{HoursBefore: 6, FeePercent: 25},
	}
	assert.Equal(t, 0, schedule.FeePercentFor(30))
	assert.Equal(t, 25, schedule.FeePercentFor(10))
	assert.Equal(t, 50, schedule.FeePercentFor(2))
}

func TestFeePercentForPastEveryThresholdChargesSteepestFee(t *testing.T) {
	// no zero-hour tier, so a late cancellation falls past every threshold;
	// the steepest fee here sits at the highest threshold, not the lowest
	schedule := Schedule{
		{HoursBefore: 24, FeePercent: 60},
		{HoursBefore: 6, FeePercent: 20},
	}
	assert.Equal(t, 60, schedule.FeePercentFor(48))
	assert.Equal(t, 20, schedule.FeePercentFor(10))
	assert.Equal(t, 60, schedule.FeePercentFor(2))
	assert.Equal(t, 60, schedule.FeePercentFor(-5))
}

func TestCanCancelStateMatrix(t *testing.T) {
	engine := NewCancellationEngine(DefaultSchedule())
	start := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)
	now := start.AddDate(0, 0, -2)

	cases := []struct {
		status  booking.Status
		allowed bool
	}{
		{booking.StatusPending, true},
		{booking.StatusConfirmed, true},
		{booking.StatusInUse, false},
		{booking.StatusCompleted, false},
		{booking.StatusCancelled, false},
	}
	for _, tc := range cases {
		b := testBooking(t, tc.status, start, end, 10000)
		allowed, reason := engine.CanCancel(b, now)
		assert.Equal(t, tc.allowed, allowed, "status=%s", tc.status)
		if !tc.allowed {
			assert.NotEmpty(t, reason, "status=%s", tc.status)
		}
	}
}

func TestCanCancelRefusedAfterStart(t *testing.T) {
	engine := NewCancellationEngine(DefaultSchedule())
	start := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	b := testBooking(t, booking.StatusConfirmed, start, start.AddDate(0, 0, 3), 10000)

	allowed, reason := engine.CanCancel(b, start.Add(2*time.Hour))
	assert.False(t, allowed)
	assert.NotEmpty(t, reason)

	engine.RefuseAfterStart = false
	allowed, _ = engine.CanCancel(b, start.Add(2*time.Hour))
	assert.True(t, allowed)
}

func TestCalculateFeeSplitsTotal(t *testing.T) {
	engine := NewCancellationEngine(DefaultSchedule())
	start := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	b := testBooking(t, booking.StatusConfirmed, start, start.AddDate(0, 0, 3), 20000)

	// 12 hours before midnight start: now is the previous day, so the date
	// truncation yields 24 hours of lead time and a free cancellation.
	fee, err := engine.CalculateFee(b, start.Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 24, fee.HoursUntilStart)
	assert.Equal(t, 0, fee.FeePercent)
	assert.Equal(t, int64(0), fee.FeeAmount.Amount)
	assert.Equal(t, int64(20000), fee.RefundAmount.Amount)

	// cancelling on the start date itself pays the steepest tier
	fee, err = engine.CalculateFee(b, start.Add(1*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, fee.HoursUntilStart)
	assert.Equal(t, 50, fee.FeePercent)
	assert.Equal(t, int64(10000), fee.FeeAmount.Amount)
	assert.Equal(t, int64(10000), fee.RefundAmount.Amount)
}

func TestCalculateFeeSumsToTotal(t *testing.T) {
	engine := NewCancellationEngine(DefaultSchedule())
	start := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	b := testBooking(t, booking.StatusPending, start, start.AddDate(0, 0, 2), 9999)

	for _, lead := range []time.Duration{-time.Hour, 3 * time.Hour, 10 * time.Hour, 30 * time.Hour, 72 * time.Hour} {
		fee, err := engine.CalculateFee(b, start.Add(-lead))
		require.NoError(t, err)
		assert.Equal(t, b.TotalPrice.Amount, fee.FeeAmount.Amount+fee.RefundAmount.Amount, "lead=%s", lead)
	}
}
