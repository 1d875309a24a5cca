package booking

import (
	"time"

	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
)

type Created struct {
	BookingID BookingID
	ProductID product.ProductID
	Span      datespan.DateSpan
	Total     money.Money
	At        time.Time
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Confirmed struct {
	BookingID BookingID
	ProductID product.ProductID
	At        time.Time
}

func (e Confirmed) EventName() string     { return "booking.confirmed" }
func (e Confirmed) AggregateID() string   { return string(e.BookingID) }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type Started struct {
	BookingID BookingID
	ProductID product.ProductID
	At        time.Time
}

func (e Started) EventName() string     { return "booking.started" }
func (e Started) AggregateID() string   { return string(e.BookingID) }
func (e Started) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	BookingID BookingID
	ProductID product.ProductID
	Fee       money.Money
	Refund    money.Money
	Reason    string
	At        time.Time
}

func (e Cancelled) EventName() string     { return "booking.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.BookingID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type Completed struct {
	BookingID BookingID
	ProductID product.ProductID
	Refund    money.Money
	At        time.Time
}

func (e Completed) EventName() string     { return "booking.completed" }
func (e Completed) AggregateID() string   { return string(e.BookingID) }
func (e Completed) OccurredAt() time.Time { return e.At }
