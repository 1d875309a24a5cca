package availability

import (
	"context"
	"errors"
	"iter"
	"time"

	"readyrent/internal/domain/booking"
	"readyrent/internal/domain/inventory"
	"readyrent/internal/domain/maintenance"
	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

// Reason explains an availability decision. External callers build user
// messaging on these codes, so the check ordering that produces them
// (status, stock, maintenance, conflicts) is part of the contract.
type Reason string

const (
	ReasonAvailable          Reason = "available"
	ReasonProductNotFound    Reason = "product_not_found"
	ReasonProductUnavailable Reason = "product_unavailable"
	ReasonOutOfStock         Reason = "out_of_stock"
	ReasonMaintenance        Reason = "maintenance"
	ReasonFullyBooked        Reason = "fully_booked"
	ReasonConflict           Reason = "conflict"
	// ReasonStockUnverified is reported when the stock snapshot could not be
	// read because the record was locked. The check fails closed: an
	// unverified product is never reported available.
	ReasonStockUnverified Reason = "stock_unverified"
)

// Result is the rich availability answer for one product and span.
type Result struct {
	Available         bool
	Reason            Reason
	ConflictCount     int
	QuantityAvailable int
}

// Checker combines the product catalog, the inventory ledger, the maintenance
// calendar and conflicting-booking detection into one available/unavailable
// decision.
type Checker struct {
	catalog   product.Catalog
	inventory inventory.Repository
	calendar  *maintenance.Calendar
	bookings  booking.Repository
}

func NewChecker(catalog product.Catalog, inv inventory.Repository, calendar *maintenance.Calendar, bookings booking.Repository) *Checker {
	return &Checker{catalog: catalog, inventory: inv, calendar: calendar, bookings: bookings}
}

// Check runs the availability decision for one product. excludeBookingID, when
// non-empty, removes that booking from conflict detection so a reschedule does
// not conflict with itself.
func (c *Checker) Check(ctx context.Context, productID product.ProductID, span datespan.DateSpan, excludeBookingID booking.BookingID) (Result, error) {
	if err := span.Validate(); err != nil {
		return Result{}, err
	}

	p, err := c.catalog.ByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return Result{Reason: ReasonProductNotFound}, nil
		}
		return Result{}, err
	}
	if !p.Bookable() {
		return Result{Reason: ReasonProductUnavailable}, nil
	}

	// A missing inventory record means the product is a single untracked
	// unit: assume stock at this step and let conflict detection decide.
	record, err := c.inventory.ByProduct(ctx, productID)
	switch {
	case errors.Is(err, inventory.ErrRecordNotFound):
		record = nil
	case errors.Is(err, inventory.ErrLockContention):
		return Result{Reason: ReasonStockUnverified}, nil
	case err != nil:
		return Result{}, err
	}
	if record != nil && record.QuantityAvailable <= 0 {
		return Result{Reason: ReasonOutOfStock}, nil
	}

	clear, err := c.calendar.IsAvailable(ctx, productID, span)
	if err != nil {
		return Result{}, err
	}
	if !clear {
		return Result{Reason: ReasonMaintenance}, nil
	}

	conflicts, err := c.bookings.CountOverlapping(ctx, productID, span, booking.OccupyingStatuses(), excludeBookingID)
	if err != nil {
		return Result{}, err
	}
	return Decide(record, conflicts), nil
}

// CheckMany answers for a set of products with one bulk fetch per concern so
// cost stays linear in the input size. Results are identical to calling Check
// per product.
func (c *Checker) CheckMany(ctx context.Context, productIDs []product.ProductID, span datespan.DateSpan) (map[product.ProductID]Result, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	results := make(map[product.ProductID]Result, len(productIDs))
	if len(productIDs) == 0 {
		return results, nil
	}

	products, err := c.catalog.ByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	records, err := c.inventory.ByProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	blocked, err := c.calendar.BlockedProducts(ctx, productIDs, span)
	if err != nil {
		return nil, err
	}
	conflicts, err := c.bookings.CountOverlappingAll(ctx, productIDs, span, booking.OccupyingStatuses())
	if err != nil {
		return nil, err
	}

	for _, id := range productIDs {
		p, ok := products[id]
		if !ok {
			results[id] = Result{Reason: ReasonProductNotFound}
			continue
		}
		if !p.Bookable() {
			results[id] = Result{Reason: ReasonProductUnavailable}
			continue
		}
		record := records[id]
		if record != nil && record.QuantityAvailable <= 0 {
			results[id] = Result{Reason: ReasonOutOfStock}
			continue
		}
		if blocked[id] {
			results[id] = Result{Reason: ReasonMaintenance}
			continue
		}
		results[id] = Decide(record, conflicts[id])
	}
	return results, nil
}

// AvailableDates yields the dates inside the span that no occupying booking
// covers, at most maxDays of them counted from the span start. The sequence
// is lazy and can be ranged over more than once.
func (c *Checker) AvailableDates(ctx context.Context, productID product.ProductID, span datespan.DateSpan, maxDays int) (iter.Seq[time.Time], error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	clamped := span.ClampDays(maxDays)
	taken, err := c.bookings.OverlappingSpans(ctx, productID, clamped, booking.OccupyingStatuses())
	if err != nil {
		return nil, err
	}
	return func(yield func(time.Time) bool) {
		for d := clamped.Start; !d.After(clamped.End); d = d.AddDate(0, 0, 1) {
			covered := false
			for _, t := range taken {
				if t.ContainsDate(d) {
					covered = true
					break
				}
			}
			if covered {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}, nil
}

// Decide applies the conflict-versus-stock rule: with an inventory record the
// window is fully booked once conflicts reach the free quantity; without one
// the product is a single unit and any conflict blocks it.
func Decide(record *inventory.Record, conflictCount int) Result {
	if record == nil {
		// Single-unit fallback: any overlap blocks the request.
		if conflictCount > 0 {
			return Result{Reason: ReasonConflict, ConflictCount: conflictCount}
		}
		return Result{Available: true, Reason: ReasonAvailable}
	}
	if conflictCount >= record.QuantityAvailable {
		return Result{
			Reason:            ReasonFullyBooked,
			ConflictCount:     conflictCount,
			QuantityAvailable: record.QuantityAvailable,
		}
	}
	return Result{
		Available:         true,
		Reason:            ReasonAvailable,
		ConflictCount:     conflictCount,
		QuantityAvailable: record.QuantityAvailable,
	}
}
