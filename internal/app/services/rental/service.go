package rental

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "readyrent/internal/app/outbox"
	"readyrent/internal/app/services/ledger"
	"readyrent/internal/app/uow"
	"readyrent/internal/domain/availability"
	domainbooking "readyrent/internal/domain/booking"
	domaininventory "readyrent/internal/domain/inventory"
	domainmaintenance "readyrent/internal/domain/maintenance"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/policy"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
)

var ErrNotConfigured = errors.New("rental: service missing dependencies")

// ErrUnavailable is returned when the commit-time re-verification finds the
// requested window cannot be booked.
type ErrUnavailable struct {
	Reason availability.Reason
}

func (e ErrUnavailable) Error() string {
	return fmt.Sprintf("rental: product unavailable (%s)", e.Reason)
}

// Service orchestrates the booking lifecycle around the reservation engine.
// The cached availability check is a pre-flight hint only; the decision that
// counts happens inside the reservation transaction.
type Service struct {
	UoWFactory   uow.UoWFactory
	Checker      *availability.CachedChecker
	Ledger       *ledger.Service
	Cancellation *policy.CancellationEngine
	EarlyReturn  *policy.EarlyReturnCalculator
	Outbox       appoutbox.Outbox
	Encoder      appoutbox.EventEncoder
	Cache        ledger.Invalidator
	Logger       *slog.Logger
	// CleaningDays schedules a blocking maintenance window of this many days
	// after every return. Zero disables post-return cleaning.
	CleaningDays int
	Now          func() time.Time
}

type CreateBookingParams struct {
	BookingID  domainbooking.BookingID
	ProductID  domainproduct.ProductID
	Start      time.Time
	End        time.Time
	TotalPrice money.Money
}

// CreateBooking validates the window, consults the cached checker for fast
// rejection, then re-verifies conflicts and reserves stock inside one unit of
// work. Two concurrent requests for the last unit cannot both succeed: the
// ledger's locked read-modify-write is the authoritative gate.
func (s *Service) CreateBooking(ctx context.Context, params CreateBookingParams) (*domainbooking.Booking, error) {
	if s.UoWFactory == nil || s.Checker == nil || s.Ledger == nil {
		return nil, ErrNotConfigured
	}
	span, err := datespan.New(params.Start, params.End)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := domainbooking.ValidateStart(span, now); err != nil {
		return nil, err
	}

	// Pre-flight hint for fast rejection and UX messaging. Never trusted for
	// the commit below.
	preflight, err := s.Checker.Check(ctx, params.ProductID, span, "")
	if err != nil {
		return nil, err
	}
	if !preflight.Available {
		return nil, ErrUnavailable{Reason: preflight.Reason}
	}

	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	txCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(txCtx)
		}
	}()

	id := params.BookingID
	if id == "" {
		id = domainbooking.BookingID(uuid.NewString())
	}
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:         id,
		ProductID:  params.ProductID,
		Span:       span,
		TotalPrice: params.TotalPrice,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	// Fresh conflict query against committed bookings, inside the reserving
	// transaction.
	record, err := s.verify(txCtx, unit, params.ProductID, span)
	if err != nil {
		return nil, err
	}
	if record != nil {
		if err := s.Ledger.ReserveStock(txCtx, params.ProductID, 1, reservationRef(b.ID)); err != nil {
			if errors.Is(err, domaininventory.ErrInsufficientStock) {
				return nil, ErrUnavailable{Reason: availability.ReasonOutOfStock}
			}
			return nil, err
		}
	}

	if err := unit.Bookings().Save(txCtx, b); err != nil {
		return nil, err
	}
	if err := s.drainEvents(txCtx, b); err != nil {
		return nil, err
	}
	if err := unit.Commit(txCtx); err != nil {
		return nil, err
	}
	committed = true
	s.invalidate(ctx, params.ProductID)
	return b, nil
}

// CancelResult carries the policy decision and, when allowed, the figures the
// external refund collaborator consumes.
type CancelResult struct {
	Allowed bool
	Reason  string
	Fee     policy.FeeBreakdown
}

// CancelBooking applies the cancellation policy. A forbidden cancellation is
// a result, not an error, so callers can present the reason directly.
func (s *Service) CancelBooking(ctx context.Context, bookingID domainbooking.BookingID, reason string) (CancelResult, error) {
	if s.UoWFactory == nil || s.Cancellation == nil || s.Ledger == nil {
		return CancelResult{}, ErrNotConfigured
	}
	now := s.now()
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return CancelResult{}, err
	}
	txCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(txCtx)
		}
	}()

	b, err := unit.Bookings().ByID(txCtx, bookingID)
	if err != nil {
		return CancelResult{}, err
	}
	allowed, denyReason := s.Cancellation.CanCancel(b, now)
	if !allowed {
		return CancelResult{Allowed: false, Reason: denyReason}, nil
	}
	fee, err := s.Cancellation.CalculateFee(b, now)
	if err != nil {
		return CancelResult{}, err
	}
	if err := b.Cancel(fee.FeeAmount, fee.RefundAmount, reason, now); err != nil {
		return CancelResult{}, err
	}
	if err := s.releaseIfTracked(txCtx, b); err != nil {
		return CancelResult{}, err
	}
	if err := unit.Bookings().Save(txCtx, b); err != nil {
		return CancelResult{}, err
	}
	if err := s.drainEvents(txCtx, b); err != nil {
		return CancelResult{}, err
	}
	if err := unit.Commit(txCtx); err != nil {
		return CancelResult{}, err
	}
	committed = true
	s.invalidate(ctx, b.ProductID)
	return CancelResult{Allowed: true, Fee: fee}, nil
}

// ReturnResult reports the early-return credit for the refund collaborator.
type ReturnResult struct {
	Refund policy.EarlyReturnBreakdown
}

// ProcessReturn completes the booking, releases its unit and, when cleaning
// is configured, quarantines the unit behind a blocking maintenance window.
func (s *Service) ProcessReturn(ctx context.Context, bookingID domainbooking.BookingID, returnDate time.Time) (ReturnResult, error) {
	if s.UoWFactory == nil || s.EarlyReturn == nil || s.Ledger == nil {
		return ReturnResult{}, ErrNotConfigured
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return ReturnResult{}, err
	}
	txCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(txCtx)
		}
	}()

	b, err := unit.Bookings().ByID(txCtx, bookingID)
	if err != nil {
		return ReturnResult{}, err
	}
	refund, err := s.EarlyReturn.Calculate(b, returnDate)
	if err != nil {
		return ReturnResult{}, err
	}
	if err := b.Complete(refund.RefundAmount, returnDate); err != nil {
		return ReturnResult{}, err
	}
	if err := s.releaseIfTracked(txCtx, b); err != nil {
		return ReturnResult{}, err
	}
	if err := s.scheduleCleaning(txCtx, unit, b, returnDate); err != nil {
		return ReturnResult{}, err
	}
	if err := unit.Bookings().Save(txCtx, b); err != nil {
		return ReturnResult{}, err
	}
	if err := s.drainEvents(txCtx, b); err != nil {
		return ReturnResult{}, err
	}
	if err := unit.Commit(txCtx); err != nil {
		return ReturnResult{}, err
	}
	committed = true
	s.invalidate(ctx, b.ProductID)
	return ReturnResult{Refund: refund}, nil
}

func (s *Service) verify(ctx context.Context, unit uow.UnitOfWork, productID domainproduct.ProductID, span datespan.DateSpan) (*domaininventory.Record, error) {
	record, err := unit.Inventory().ByProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domaininventory.ErrRecordNotFound) {
			record = nil
		} else {
			return nil, err
		}
	}
	conflicts, err := unit.Bookings().CountOverlapping(ctx, productID, span, domainbooking.OccupyingStatuses(), "")
	if err != nil {
		return nil, err
	}
	if verdict := availability.Decide(record, conflicts); !verdict.Available {
		return nil, ErrUnavailable{Reason: verdict.Reason}
	}
	return record, nil
}

// scheduleCleaning books a blocking maintenance window starting the day after
// the return and quarantines one unit for its duration.
func (s *Service) scheduleCleaning(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, returnedAt time.Time) error {
	if s.CleaningDays <= 0 {
		return nil
	}
	start := datespan.DateOf(returnedAt).AddDate(0, 0, 1)
	window := &domainmaintenance.Window{
		ID:             uuid.NewString(),
		ProductID:      b.ProductID,
		StartAt:        start,
		EndAt:          start.AddDate(0, 0, s.CleaningDays-1),
		BlocksBookings: true,
		Status:         domainmaintenance.StatusScheduled,
		Notes:          "post-return cleaning",
		CreatedAt:      s.now(),
	}
	if err := unit.Maintenance().Save(ctx, window); err != nil {
		return err
	}
	err := s.Ledger.MoveToMaintenance(ctx, b.ProductID, 1, domaininventory.Reference{
		Kind: "maintenance_window", ID: window.ID, Actor: "system", Notes: window.Notes,
	})
	if err != nil && !errors.Is(err, domaininventory.ErrRecordNotFound) && !errors.Is(err, domaininventory.ErrInsufficientStock) {
		return err
	}
	return nil
}

func (s *Service) releaseIfTracked(ctx context.Context, b *domainbooking.Booking) error {
	err := s.Ledger.ReleaseStock(ctx, b.ProductID, 1, reservationRef(b.ID))
	if err != nil && !errors.Is(err, domaininventory.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *Service) drainEvents(ctx context.Context, b *domainbooking.Booking) error {
	pending := b.PendingEvents()
	b.ClearEvents()
	return appoutbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, pending)
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

func reservationRef(id domainbooking.BookingID) domaininventory.Reference {
	return domaininventory.Reference{Kind: "booking", ID: string(id), Actor: "system"}
}
