package booking

import (
	"context"
	"errors"
	"time"

	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/events"
	"readyrent/internal/domain/shared/money"
)

var (
	ErrBookingNotFound = errors.New("booking: not found")
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrInvalidDays     = errors.New("booking: total days must be positive")
	ErrStartInPast     = errors.New("booking: start date is in the past")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusInUse     Status = "in_use"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// OccupyingStatuses are the states in which a booking holds inventory and
// conflicts with new requests. Completed and cancelled bookings do not.
func OccupyingStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusInUse}
}

// Booking is the subset of a marketplace booking this core reads and writes.
type Booking struct {
	ID         BookingID
	ProductID  product.ProductID
	Span       datespan.DateSpan
	Status     Status
	TotalPrice money.Money
	TotalDays  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type CreateParams struct {
	ID         BookingID
	ProductID  product.ProductID
	Span       datespan.DateSpan
	TotalPrice money.Money
	CreatedAt  time.Time
}

func New(params CreateParams) (*Booking, error) {
	if err := params.Span.Validate(); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, errors.New("booking: id required")
	}
	if params.ProductID == "" {
		return nil, errors.New("booking: product id required")
	}
	days := params.Span.Days()
	if days <= 0 {
		return nil, ErrInvalidDays
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		ProductID:  params.ProductID,
		Span:       params.Span,
		Status:     StatusPending,
		TotalPrice: params.TotalPrice,
		TotalDays:  days,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(Created{BookingID: b.ID, ProductID: b.ProductID, Span: b.Span, Total: b.TotalPrice, At: now})
	return b, nil
}

// ValidateStart rejects spans that begin before the current calendar date.
func ValidateStart(span datespan.DateSpan, now time.Time) error {
	if span.Start.Before(datespan.DateOf(now)) {
		return ErrStartInPast
	}
	return nil
}

// Occupying reports whether the booking currently holds inventory.
func (b *Booking) Occupying() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusInUse:
		return true
	default:
		return false
	}
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(Confirmed{BookingID: b.ID, ProductID: b.ProductID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Start(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusInUse
	b.UpdatedAt = now.UTC()
	b.Record(Started{BookingID: b.ID, ProductID: b.ProductID, At: b.UpdatedAt})
	return nil
}

// Cancel moves the booking to cancelled. The fee/refund split is decided by
// the cancellation policy engine; the figures travel on the event so the
// external refund collaborator can consume them.
func (b *Booking) Cancel(fee, refund money.Money, reason string, now time.Time) error {
	switch b.Status {
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(Cancelled{BookingID: b.ID, ProductID: b.ProductID, Fee: fee, Refund: refund, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Complete closes the booking on return. A non-zero refund carries the
// early-return credit computed by the calculator.
func (b *Booking) Complete(refund money.Money, returnedAt time.Time) error {
	if b.Status != StatusInUse && b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = returnedAt.UTC()
	b.Record(Completed{BookingID: b.ID, ProductID: b.ProductID, Refund: refund, At: b.UpdatedAt})
	return nil
}

// Repository is the booking-store port. The overlap queries power conflict
// detection and must filter on the occupying status set.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// CountOverlapping counts bookings for the product whose span overlaps the
	// given one and whose status is in statuses, excluding excludeID when set.
	CountOverlapping(ctx context.Context, productID product.ProductID, span datespan.DateSpan, statuses []Status, excludeID BookingID) (int, error)
	// CountOverlappingAll is the bulk form used by batch availability checks;
	// products without conflicts may be absent from the result map.
	CountOverlappingAll(ctx context.Context, productIDs []product.ProductID, span datespan.DateSpan, statuses []Status) (map[product.ProductID]int, error)
	// OverlappingSpans returns the date spans of conflicting bookings, used to
	// enumerate free dates.
	OverlappingSpans(ctx context.Context, productID product.ProductID, span datespan.DateSpan, statuses []Status) ([]datespan.DateSpan, error)
}
