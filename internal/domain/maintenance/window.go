package maintenance

import (
	"context"
	"errors"
	"time"

	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

var ErrWindowNotFound = errors.New("maintenance: window not found")

type WindowStatus string

const (
	StatusScheduled  WindowStatus = "scheduled"
	StatusInProgress WindowStatus = "in_progress"
	StatusCompleted  WindowStatus = "completed"
	StatusCancelled  WindowStatus = "cancelled"
)

// Window is a maintenance period produced by the external scheduler. This
// core reads windows; only Blocking ones affect availability.
type Window struct {
	ID             string
	ProductID      product.ProductID
	StartAt        time.Time
	EndAt          time.Time
	BlocksBookings bool
	Status         WindowStatus
	Notes          string
	CreatedAt      time.Time
}

// Blocking reports whether the window currently removes dates from the
// bookable calendar.
func (w Window) Blocking() bool {
	if !w.BlocksBookings {
		return false
	}
	return w.Status == StatusScheduled || w.Status == StatusInProgress
}

// Span reduces the window's instants to date granularity, which is how it is
// compared against booking spans.
func (w Window) Span() datespan.DateSpan {
	return datespan.DateSpan{Start: datespan.DateOf(w.StartAt), End: datespan.DateOf(w.EndAt)}
}

type Repository interface {
	Save(ctx context.Context, window *Window) error
	// BlockingOverlapping returns blocking windows for the product whose date
	// span overlaps the given one.
	BlockingOverlapping(ctx context.Context, productID product.ProductID, span datespan.DateSpan) ([]Window, error)
	// BlockedProducts is the bulk form: the subset of ids that have at least
	// one blocking window overlapping the span.
	BlockedProducts(ctx context.Context, productIDs []product.ProductID, span datespan.DateSpan) (map[product.ProductID]bool, error)
}

// Calendar answers blackout questions for the availability checker.
type Calendar struct {
	windows Repository
}

func NewCalendar(windows Repository) *Calendar {
	return &Calendar{windows: windows}
}

// IsAvailable is true iff no blocking window overlaps the span at date
// granularity.
func (c *Calendar) IsAvailable(ctx context.Context, productID product.ProductID, span datespan.DateSpan) (bool, error) {
	overlapping, err := c.windows.BlockingOverlapping(ctx, productID, span)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}

// BlockedProducts reports which of the given products have a blackout inside
// the span.
func (c *Calendar) BlockedProducts(ctx context.Context, productIDs []product.ProductID, span datespan.DateSpan) (map[product.ProductID]bool, error) {
	return c.windows.BlockedProducts(ctx, productIDs, span)
}
