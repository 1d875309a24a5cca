package inventory

import (
	"context"
	"errors"
	"time"

	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/events"
)

var (
	ErrRecordNotFound     = errors.New("inventory: record not found")
	ErrInsufficientStock  = errors.New("inventory: insufficient stock")
	ErrInvalidQuantity    = errors.New("inventory: quantity must be positive")
	ErrNegativeAdjustment = errors.New("inventory: adjustment would drop available below zero")
	ErrLockContention     = errors.New("inventory: record is locked by another operation")
)

// Record tracks the stock pools for one rentable product. The invariant
// available + rented + maintenance == total holds after every mutation, and
// no pool ever goes negative. Mutations happen only through the methods below,
// each of which appends exactly one Movement.
type Record struct {
	ProductID           product.ProductID
	QuantityTotal       int
	QuantityAvailable   int
	QuantityRented      int
	QuantityMaintenance int
	LowStockThreshold   int
	UpdatedAt           time.Time
	Version             int64
	events.EventRecorder
}

// NewRecord creates a record for a product entering the catalog. A product
// starts as a single tracked unit unless told otherwise.
func NewRecord(productID product.ProductID, total, lowStockThreshold int, now time.Time) (*Record, error) {
	if total <= 0 {
		total = 1
	}
	if lowStockThreshold < 0 {
		lowStockThreshold = 0
	}
	return &Record{
		ProductID:         productID,
		QuantityTotal:     total,
		QuantityAvailable: total,
		LowStockThreshold: lowStockThreshold,
		UpdatedAt:         now.UTC(),
	}, nil
}

// Reference identifies the business operation behind a stock movement.
type Reference struct {
	Kind  string
	ID    string
	Actor string
	Notes string
}

// Reserve moves qty units from available to rented. It mutates nothing and
// returns ErrInsufficientStock when not enough units are free.
func (r *Record) Reserve(qty int, ref Reference, now time.Time) (Movement, error) {
	if qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if r.QuantityAvailable < qty {
		return Movement{}, ErrInsufficientStock
	}
	prev := r.QuantityAvailable
	r.QuantityAvailable -= qty
	r.QuantityRented += qty
	r.UpdatedAt = now.UTC()
	m := r.newMovement(MovementOut, qty, prev, ref, now)
	r.Record(StockReserved{ProductID: r.ProductID, Quantity: qty, Remaining: r.QuantityAvailable, Reference: ref, At: r.UpdatedAt})
	return m, nil
}

// Release returns qty units from rented to available. Rented is floored at
// zero so a double release cannot corrupt the pools; total absorbs nothing.
func (r *Record) Release(qty int, ref Reference, now time.Time) (Movement, error) {
	if qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	prev := r.QuantityAvailable
	returned := qty
	if returned > r.QuantityRented {
		returned = r.QuantityRented
	}
	r.QuantityAvailable += returned
	r.QuantityRented -= returned
	r.UpdatedAt = now.UTC()
	// The audit row records what actually moved, not what was asked for.
	m := r.newMovement(MovementReturn, returned, prev, ref, now)
	r.Record(StockReleased{ProductID: r.ProductID, Quantity: returned, Remaining: r.QuantityAvailable, Reference: ref, At: r.UpdatedAt})
	return m, nil
}

// MoveToMaintenance quarantines qty available units for servicing.
func (r *Record) MoveToMaintenance(qty int, ref Reference, now time.Time) (Movement, error) {
	if qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if r.QuantityAvailable < qty {
		return Movement{}, ErrInsufficientStock
	}
	prev := r.QuantityAvailable
	r.QuantityAvailable -= qty
	r.QuantityMaintenance += qty
	r.UpdatedAt = now.UTC()
	m := r.newMovement(MovementMaintenance, qty, prev, ref, now)
	r.Record(StockQuarantined{ProductID: r.ProductID, Quantity: qty, Remaining: r.QuantityAvailable, Reference: ref, At: r.UpdatedAt})
	return m, nil
}

// ReturnFromMaintenance brings qty serviced units back into the available pool.
func (r *Record) ReturnFromMaintenance(qty int, ref Reference, now time.Time) (Movement, error) {
	if qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if r.QuantityMaintenance < qty {
		return Movement{}, ErrInsufficientStock
	}
	prev := r.QuantityAvailable
	r.QuantityMaintenance -= qty
	r.QuantityAvailable += qty
	r.UpdatedAt = now.UTC()
	m := r.newMovement(MovementIn, qty, prev, ref, now)
	r.Record(StockRestored{ProductID: r.ProductID, Quantity: qty, Remaining: r.QuantityAvailable, Reference: ref, At: r.UpdatedAt})
	return m, nil
}

// Adjust applies a manual correction. A positive delta grows total and
// available together; a negative delta shrinks available only and is refused
// when it would push available below zero.
func (r *Record) Adjust(delta int, ref Reference, now time.Time) (Movement, error) {
	if delta == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	prev := r.QuantityAvailable
	if delta > 0 {
		r.QuantityTotal += delta
		r.QuantityAvailable += delta
	} else {
		if r.QuantityAvailable+delta < 0 {
			return Movement{}, ErrNegativeAdjustment
		}
		r.QuantityTotal += delta
		r.QuantityAvailable += delta
	}
	r.UpdatedAt = now.UTC()
	qty := delta
	if qty < 0 {
		qty = -qty
	}
	m := r.newMovement(MovementAdjustment, qty, prev, ref, now)
	r.Record(StockAdjusted{ProductID: r.ProductID, Delta: delta, Remaining: r.QuantityAvailable, Reference: ref, At: r.UpdatedAt})
	return m, nil
}

// CheckInvariant verifies the pools still reconcile; storage layers call it
// before persisting.
func (r *Record) CheckInvariant() error {
	if r.QuantityAvailable < 0 || r.QuantityRented < 0 || r.QuantityMaintenance < 0 {
		return errors.New("inventory: negative stock pool")
	}
	if r.QuantityAvailable+r.QuantityRented+r.QuantityMaintenance != r.QuantityTotal {
		return errors.New("inventory: stock pools do not sum to total")
	}
	return nil
}

// LowOnStock reports whether the record sits at or under its alert threshold
// while some stock remains.
func (r *Record) LowOnStock() bool {
	return r.QuantityAvailable > 0 && r.QuantityAvailable <= r.LowStockThreshold
}

// OutOfStock reports whether no units are left to rent.
func (r *Record) OutOfStock() bool {
	return r.QuantityAvailable == 0
}

// Repository persists inventory records. ByProduct returns ErrRecordNotFound
// for untracked products; the availability checker treats that as the
// single-unit fallback, not an error.
type Repository interface {
	ByProduct(ctx context.Context, id product.ProductID) (*Record, error)
	ByProducts(ctx context.Context, ids []product.ProductID) (map[product.ProductID]*Record, error)
	Save(ctx context.Context, record *Record) error
}
