package policy

import (
	"sort"
	"time"

	"readyrent/internal/domain/booking"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
)

// FeeTier maps a minimum number of hours before the rental start to the fee
// charged on cancellation. A booking cancelled at least HoursBefore hours
// ahead pays FeePercent of the total price.
type FeeTier struct {
	HoursBefore int
	FeePercent  int
}

// Schedule is the ordered tier table. Tiers are evaluated descending by
// threshold, first match wins; anything below the lowest threshold, including
// cancellations after the start instant, pays the most punitive tier.
type Schedule []FeeTier

// DefaultSchedule mirrors the marketplace's standard policy: free a day out,
// then 10%, 25% and finally 50% inside six hours.
func DefaultSchedule() Schedule {
	return Schedule{
		{HoursBefore: 24, FeePercent: 0},
		{HoursBefore: 12, FeePercent: 10},
		{HoursBefore: 6, FeePercent: 25},
		{HoursBefore: 0, FeePercent: 50},
	}
}

// Normalized returns the schedule sorted descending by threshold.
func (s Schedule) Normalized() Schedule {
	out := make(Schedule, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].HoursBefore > out[j].HoursBefore })
	return out
}

// FeePercentFor selects the fee for the given lead time.
func (s Schedule) FeePercentFor(hoursUntilStart int) int {
	tiers := s.Normalized()
	if len(tiers) == 0 {
		return 0
	}
	for _, tier := range tiers {
		if hoursUntilStart >= tier.HoursBefore {
			return tier.FeePercent
		}
	}
	// Past every threshold means the cancellation is later than the policy
	// anticipates; charge the steepest fee anywhere in the table, which for a
	// non-monotone configuration need not sit at the lowest threshold.
	steepest := tiers[0].FeePercent
	for _, tier := range tiers[1:] {
		if tier.FeePercent > steepest {
			steepest = tier.FeePercent
		}
	}
	return steepest
}

// CancellationEngine decides whether a booking may be cancelled and what the
// split between fee and refund is. It is a pure calculator over the schedule.
type CancellationEngine struct {
	Schedule Schedule
	// RefuseAfterStart forbids cancellation once the start date has been
	// reached, independent of the booking state.
	RefuseAfterStart bool
}

func NewCancellationEngine(schedule Schedule) *CancellationEngine {
	return &CancellationEngine{Schedule: schedule, RefuseAfterStart: true}
}

// CanCancel returns (false, reason) pairs instead of errors so orchestrators
// can surface the reason to the user directly.
func (e *CancellationEngine) CanCancel(b *booking.Booking, now time.Time) (bool, string) {
	switch b.Status {
	case booking.StatusInUse:
		return false, "booking is already in use"
	case booking.StatusCompleted:
		return false, "booking is already completed"
	case booking.StatusCancelled:
		return false, "booking is already cancelled"
	}
	if e.RefuseAfterStart && !datespan.DateOf(now).Before(b.Span.Start) {
		return false, "rental start date has been reached"
	}
	return true, ""
}

// FeeBreakdown is what the external refund collaborator consumes.
type FeeBreakdown struct {
	FeePercent      int
	FeeAmount       money.Money
	RefundAmount    money.Money
	HoursUntilStart int
}

// CalculateFee computes the split for cancelling at "now". Hours are measured
// from now's calendar date to the start date. Callable independently of
// CanCancel; no side effects.
func (e *CancellationEngine) CalculateFee(b *booking.Booking, now time.Time) (FeeBreakdown, error) {
	if err := b.Span.Validate(); err != nil {
		return FeeBreakdown{}, err
	}
	hours := int(b.Span.Start.Sub(datespan.DateOf(now)).Hours())
	percent := e.Schedule.FeePercentFor(hours)
	fee := b.TotalPrice.Percent(percent)
	refund, err := b.TotalPrice.Sub(fee)
	if err != nil {
		return FeeBreakdown{}, err
	}
	return FeeBreakdown{
		FeePercent:      percent,
		FeeAmount:       fee,
		RefundAmount:    refund,
		HoursUntilStart: hours,
	}, nil
}
