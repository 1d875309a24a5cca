package memory

import (
	"context"
	"errors"

	"readyrent/internal/app/uow"
	domainbooking "readyrent/internal/domain/booking"
	domaininventory "readyrent/internal/domain/inventory"
	domainmaintenance "readyrent/internal/domain/maintenance"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	BookingRepo     domainbooking.Repository
	InventoryRepo   domaininventory.Repository
	MovementLog     domaininventory.MovementLog
	AlertRepo       domaininventory.AlertRepository
	MaintenanceRepo domainmaintenance.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.BookingRepo == nil || f.InventoryRepo == nil || f.MovementLog == nil || f.AlertRepo == nil || f.MaintenanceRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		bookings:    f.BookingRepo,
		inventory:   f.InventoryRepo,
		movements:   f.MovementLog,
		alerts:      f.AlertRepo,
		maintenance: f.MaintenanceRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	bookings    domainbooking.Repository
	inventory   domaininventory.Repository
	movements   domaininventory.MovementLog
	alerts      domaininventory.AlertRepository
	maintenance domainmaintenance.Repository
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Inventory() domaininventory.Repository {
	return u.inventory
}

func (u *Unit) Movements() domaininventory.MovementLog {
	return u.movements
}

func (u *Unit) Alerts() domaininventory.AlertRepository {
	return u.alerts
}

func (u *Unit) Maintenance() domainmaintenance.Repository {
	return u.maintenance
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
