package inventory

import (
	"context"
	"time"

	"readyrent/internal/domain/product"
)

type AlertKind string

const (
	AlertLowStock   AlertKind = "low_stock"
	AlertOutOfStock AlertKind = "out_of_stock"
)

// Alert is the record behind a notification to the operations team. While an
// alert of a given kind stays unresolved for a product, no duplicate is
// created.
type Alert struct {
	ID        string
	ProductID product.ProductID
	Kind      AlertKind
	Quantity  int
	Resolved  bool
	CreatedAt time.Time
}

// AlertRepository enforces the at-most-one-outstanding rule: CreateIfAbsent
// reports false when an unresolved alert of the same kind already exists.
type AlertRepository interface {
	CreateIfAbsent(ctx context.Context, alert Alert) (bool, error)
	Resolve(ctx context.Context, productID product.ProductID, kind AlertKind) error
	Outstanding(ctx context.Context, productID product.ProductID) ([]Alert, error)
}
