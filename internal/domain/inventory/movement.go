package inventory

import (
	"context"
	"time"

	"readyrent/internal/domain/product"
)

type MovementKind string

const (
	MovementIn          MovementKind = "in"
	MovementOut         MovementKind = "out"
	MovementAdjustment  MovementKind = "adjustment"
	MovementReturn      MovementKind = "return"
	MovementMaintenance MovementKind = "maintenance"
)

// Movement is one append-only audit row. Rows are immutable once written.
type Movement struct {
	ID               string
	ProductID        product.ProductID
	Kind             MovementKind
	Quantity         int
	PreviousQuantity int
	NewQuantity      int
	ReferenceKind    string
	ReferenceID      string
	Actor            string
	Notes            string
	At               time.Time
}

func (r *Record) newMovement(kind MovementKind, qty, prevAvailable int, ref Reference, now time.Time) Movement {
	return Movement{
		ProductID:        r.ProductID,
		Kind:             kind,
		Quantity:         qty,
		PreviousQuantity: prevAvailable,
		NewQuantity:      r.QuantityAvailable,
		ReferenceKind:    ref.Kind,
		ReferenceID:      ref.ID,
		Actor:            ref.Actor,
		Notes:            ref.Notes,
		At:               now.UTC(),
	}
}

// MovementLog is the append-only store for stock movements.
type MovementLog interface {
	Append(ctx context.Context, movement Movement) error
	ByProduct(ctx context.Context, id product.ProductID, limit int) ([]Movement, error)
}
