package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"readyrent/internal/app/uow"
	domainbooking "readyrent/internal/domain/booking"
	domaininventory "readyrent/internal/domain/inventory"
	domainmaintenance "readyrent/internal/domain/maintenance"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	BookingRepo     domainbooking.Repository
	InventoryRepo   domaininventory.Repository
	MovementLog     domaininventory.MovementLog
	AlertRepo       domaininventory.AlertRepository
	MaintenanceRepo domainmaintenance.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:          f.DB,
		session:     session,
		bookings:    f.BookingRepo,
		inventory:   f.InventoryRepo,
		movements:   f.MovementLog,
		alerts:      f.AlertRepo,
		maintenance: f.MaintenanceRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for
// downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
