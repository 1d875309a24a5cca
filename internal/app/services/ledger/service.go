package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "readyrent/internal/app/outbox"
	"readyrent/internal/app/uow"
	domaininventory "readyrent/internal/domain/inventory"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/events"
)

var (
	ErrNotConfigured  = errors.New("ledger: service missing dependencies")
	ErrAlreadyTracked = errors.New("ledger: product already has an inventory record")
)

// Invalidator drops cached availability entries after a stock mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, productID domainproduct.ProductID, span *datespan.DateSpan) error
}

// Service is the inventory ledger: every mutation runs under the product's
// exclusive lock inside one unit of work, appends exactly one movement, and
// raises alerts and domain events as side effects the caller can see.
type Service struct {
	UoWFactory uow.UoWFactory
	Locks      *domaininventory.Locks
	Outbox     appoutbox.Outbox
	Encoder    appoutbox.EventEncoder
	Cache      Invalidator
	Logger     *slog.Logger
	Now        func() time.Time
}

// InitializeStock starts tracking a product with the given pool size. It is a
// no-op error when a record already exists; use AdjustStock to grow one.
func (s *Service) InitializeStock(ctx context.Context, productID domainproduct.ProductID, total, lowStockThreshold int) error {
	if s.UoWFactory == nil || s.Locks == nil {
		return ErrNotConfigured
	}
	release, err := s.Locks.TryAcquire(productID)
	if err != nil {
		return err
	}
	defer release()

	unit, managed, err := s.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	if managed {
		ctx = uow.Bind(ctx, unit)
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	if _, err := unit.Inventory().ByProduct(ctx, productID); err == nil {
		return ErrAlreadyTracked
	} else if !errors.Is(err, domaininventory.ErrRecordNotFound) {
		return err
	}
	now := s.now()
	record, err := domaininventory.NewRecord(productID, total, lowStockThreshold, now)
	if err != nil {
		return err
	}
	if err := unit.Inventory().Save(ctx, record); err != nil {
		return err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return err
		}
		committed = true
	}
	s.invalidate(ctx, productID)
	return nil
}

func (s *Service) ReserveStock(ctx context.Context, productID domainproduct.ProductID, qty int, ref domaininventory.Reference) error {
	return s.mutate(ctx, productID, func(record *domaininventory.Record, now time.Time) (domaininventory.Movement, error) {
		return record.Reserve(qty, ref, now)
	})
}

func (s *Service) ReleaseStock(ctx context.Context, productID domainproduct.ProductID, qty int, ref domaininventory.Reference) error {
	return s.mutate(ctx, productID, func(record *domaininventory.Record, now time.Time) (domaininventory.Movement, error) {
		return record.Release(qty, ref, now)
	})
}

func (s *Service) MoveToMaintenance(ctx context.Context, productID domainproduct.ProductID, qty int, ref domaininventory.Reference) error {
	return s.mutate(ctx, productID, func(record *domaininventory.Record, now time.Time) (domaininventory.Movement, error) {
		return record.MoveToMaintenance(qty, ref, now)
	})
}

func (s *Service) ReturnFromMaintenance(ctx context.Context, productID domainproduct.ProductID, qty int, ref domaininventory.Reference) error {
	return s.mutate(ctx, productID, func(record *domaininventory.Record, now time.Time) (domaininventory.Movement, error) {
		return record.ReturnFromMaintenance(qty, ref, now)
	})
}

func (s *Service) AdjustStock(ctx context.Context, productID domainproduct.ProductID, delta int, ref domaininventory.Reference) error {
	return s.mutate(ctx, productID, func(record *domaininventory.Record, now time.Time) (domaininventory.Movement, error) {
		return record.Adjust(delta, ref, now)
	})
}

// CheckAvailability is a lock-free snapshot read; callers must not base a
// commit on it.
func (s *Service) CheckAvailability(ctx context.Context, productID domainproduct.ProductID, qty int) (bool, error) {
	if s.UoWFactory == nil {
		return false, ErrNotConfigured
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return false, err
	}
	defer unit.Rollback(ctx)
	record, err := unit.Inventory().ByProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domaininventory.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.QuantityAvailable >= qty, nil
}

// Movements exposes the audit trail for a product, latest first.
func (s *Service) Movements(ctx context.Context, productID domainproduct.ProductID, limit int) ([]domaininventory.Movement, error) {
	if s.UoWFactory == nil {
		return nil, ErrNotConfigured
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	return unit.Movements().ByProduct(ctx, productID, limit)
}

// Record returns the current stock snapshot.
func (s *Service) Record(ctx context.Context, productID domainproduct.ProductID) (*domaininventory.Record, error) {
	if s.UoWFactory == nil {
		return nil, ErrNotConfigured
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	return unit.Inventory().ByProduct(ctx, productID)
}

type mutation func(record *domaininventory.Record, now time.Time) (domaininventory.Movement, error)

func (s *Service) mutate(ctx context.Context, productID domainproduct.ProductID, apply mutation) error {
	if s.UoWFactory == nil || s.Locks == nil {
		return ErrNotConfigured
	}
	release, err := s.Locks.TryAcquire(productID)
	if err != nil {
		return err
	}
	defer release()

	unit, managed, err := s.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	if managed {
		ctx = uow.Bind(ctx, unit)
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	now := s.now()
	record, err := unit.Inventory().ByProduct(ctx, productID)
	if err != nil {
		return err
	}
	movement, err := apply(record, now)
	if err != nil {
		return err
	}
	if err := record.CheckInvariant(); err != nil {
		return err
	}
	movement.ID = uuid.NewString()
	if err := unit.Inventory().Save(ctx, record); err != nil {
		return err
	}
	if err := unit.Movements().Append(ctx, movement); err != nil {
		return err
	}
	if err := s.raiseAlerts(ctx, unit, record, now); err != nil {
		return err
	}

	pending := record.PendingEvents()
	record.ClearEvents()
	if err := appoutbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, pending); err != nil {
		return err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return err
		}
		committed = true
	}
	s.invalidate(ctx, productID)
	return nil
}

// raiseAlerts creates at most one outstanding alert per kind. A duplicate
// while the previous alert is unresolved is silently skipped.
func (s *Service) raiseAlerts(ctx context.Context, unit uow.UnitOfWork, record *domaininventory.Record, now time.Time) error {
	var kind domaininventory.AlertKind
	switch {
	case record.OutOfStock():
		kind = domaininventory.AlertOutOfStock
	case record.LowOnStock():
		kind = domaininventory.AlertLowStock
	default:
		return nil
	}
	alert := domaininventory.Alert{
		ID:        uuid.NewString(),
		ProductID: record.ProductID,
		Kind:      kind,
		Quantity:  record.QuantityAvailable,
		CreatedAt: now.UTC(),
	}
	created, err := unit.Alerts().CreateIfAbsent(ctx, alert)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	ev := domaininventory.AlertRaised{
		AlertID:   alert.ID,
		ProductID: alert.ProductID,
		Kind:      alert.Kind,
		Quantity:  alert.Quantity,
		At:        alert.CreatedAt,
	}
	return appoutbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, []events.DomainEvent{ev})
}

func (s *Service) begin(ctx context.Context) (uow.UnitOfWork, bool, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, false, nil
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	return unit, true, nil
}

func (s *Service) invalidate(ctx context.Context, productID domainproduct.ProductID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, productID, nil); err != nil && s.Logger != nil {
		s.Logger.Warn("availability cache invalidation failed", "product_id", productID, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
