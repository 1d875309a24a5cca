package policy

import (
	"errors"
	"time"

	"readyrent/internal/domain/booking"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
)

// ErrReturnBeforeStart rejects a return dated before the rental began; the
// credit would otherwise cover days the booking never spanned.
var ErrReturnBeforeStart = errors.New("policy: return date is before the rental start")

// DefaultEarlyReturnRefundPercent is the share of the daily rate credited
// back for each unused day.
const DefaultEarlyReturnRefundPercent = 80

// EarlyReturnCalculator prorates a refund when a rental comes back before its
// scheduled end date. Pure calculator, no side effects.
type EarlyReturnCalculator struct {
	RefundPercent int
}

func NewEarlyReturnCalculator(refundPercent int) *EarlyReturnCalculator {
	if refundPercent <= 0 || refundPercent > 100 {
		refundPercent = DefaultEarlyReturnRefundPercent
	}
	return &EarlyReturnCalculator{RefundPercent: refundPercent}
}

type EarlyReturnBreakdown struct {
	RefundAmount money.Money
	UnusedDays   int
	RefundPerDay money.Money
}

// Calculate returns the credit for returning on returnDate. Returning on or
// after the scheduled end date yields a zero breakdown; a date before the
// start is ErrReturnBeforeStart.
func (c *EarlyReturnCalculator) Calculate(b *booking.Booking, returnDate time.Time) (EarlyReturnBreakdown, error) {
	if err := b.Span.Validate(); err != nil {
		return EarlyReturnBreakdown{}, err
	}
	if b.TotalDays <= 0 {
		return EarlyReturnBreakdown{}, booking.ErrInvalidDays
	}
	zero := money.Money{Amount: 0, Currency: b.TotalPrice.Currency}
	returned := datespan.DateOf(returnDate)
	if returned.Before(b.Span.Start) {
		return EarlyReturnBreakdown{}, ErrReturnBeforeStart
	}
	if !returned.Before(b.Span.End) {
		return EarlyReturnBreakdown{RefundAmount: zero, RefundPerDay: zero}, nil
	}
	unused := int(b.Span.End.Sub(returned).Hours() / 24)
	pricePerDay, err := b.TotalPrice.Divide(int64(b.TotalDays))
	if err != nil {
		return EarlyReturnBreakdown{}, err
	}
	perDay := pricePerDay.Percent(c.RefundPercent)
	return EarlyReturnBreakdown{
		RefundAmount: perDay.Multiply(int64(unused)),
		UnusedDays:   unused,
		RefundPerDay: perDay,
	}, nil
}
