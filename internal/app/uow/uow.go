package uow

import (
	"context"

	domainbooking "readyrent/internal/domain/booking"
	domaininventory "readyrent/internal/domain/inventory"
	domainmaintenance "readyrent/internal/domain/maintenance"
)

// UnitOfWork coordinates the reservation-engine repositories inside one
// transaction boundary, so a stock reservation and the booking it belongs to
// commit or roll back together.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Inventory() domaininventory.Repository
	Movements() domaininventory.MovementLog
	Alerts() domaininventory.AlertRepository
	Maintenance() domainmaintenance.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
