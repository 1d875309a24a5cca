package inventory

import (
	"time"

	"readyrent/internal/domain/product"
)

type StockReserved struct {
	ProductID product.ProductID
	Quantity  int
	Remaining int
	Reference Reference
	At        time.Time
}

func (e StockReserved) EventName() string     { return "inventory.stock_reserved" }
func (e StockReserved) AggregateID() string   { return string(e.ProductID) }
func (e StockReserved) OccurredAt() time.Time { return e.At }

type StockReleased struct {
	ProductID product.ProductID
	Quantity  int
	Remaining int
	Reference Reference
	At        time.Time
}

func (e StockReleased) EventName() string     { return "inventory.stock_released" }
func (e StockReleased) AggregateID() string   { return string(e.ProductID) }
func (e StockReleased) OccurredAt() time.Time { return e.At }

type StockQuarantined struct {
	ProductID product.ProductID
	Quantity  int
	Remaining int
	Reference Reference
	At        time.Time
}

func (e StockQuarantined) EventName() string     { return "inventory.stock_quarantined" }
func (e StockQuarantined) AggregateID() string   { return string(e.ProductID) }
func (e StockQuarantined) OccurredAt() time.Time { return e.At }

type StockRestored struct {
	ProductID product.ProductID
	Quantity  int
	Remaining int
	Reference Reference
	At        time.Time
}

func (e StockRestored) EventName() string     { return "inventory.stock_restored" }
func (e StockRestored) AggregateID() string   { return string(e.ProductID) }
func (e StockRestored) OccurredAt() time.Time { return e.At }

type StockAdjusted struct {
	ProductID product.ProductID
	Delta     int
	Remaining int
	Reference Reference
	At        time.Time
}

func (e StockAdjusted) EventName() string     { return "inventory.stock_adjusted" }
func (e StockAdjusted) AggregateID() string   { return string(e.ProductID) }
func (e StockAdjusted) OccurredAt() time.Time { return e.At }

type AlertRaised struct {
	AlertID   string
	ProductID product.ProductID
	Kind      AlertKind
	Quantity  int
	At        time.Time
}

func (e AlertRaised) EventName() string     { return "inventory.alert_raised" }
func (e AlertRaised) AggregateID() string   { return string(e.ProductID) }
func (e AlertRaised) OccurredAt() time.Time { return e.At }
