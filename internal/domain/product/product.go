package product

import (
	"context"
	"errors"
)

var ErrProductNotFound = errors.New("product: not found")

type ProductID string

type Status string

const (
	StatusAvailable   Status = "available"
	StatusRented      Status = "rented"
	StatusMaintenance Status = "maintenance"
	StatusUnavailable Status = "unavailable"
)

// Product is the slice of the catalog entry this core consumes. The catalog
// itself is owned by an external collaborator.
type Product struct {
	ID       ProductID
	Status   Status
	Category string
}

// Bookable reports whether the catalog status permits new bookings at all.
func (p Product) Bookable() bool {
	return p.Status == StatusAvailable
}

// Catalog is the read-only port into the product catalog.
type Catalog interface {
	ByID(ctx context.Context, id ProductID) (Product, error)
	ByIDs(ctx context.Context, ids []ProductID) (map[ProductID]Product, error)
}
