package rental_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readyrent/internal/app/services/ledger"
	"readyrent/internal/app/services/rental"
	"readyrent/internal/domain/availability"
	domainbooking "readyrent/internal/domain/booking"
	domaininventory "readyrent/internal/domain/inventory"
	domainmaintenance "readyrent/internal/domain/maintenance"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/policy"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
	"readyrent/internal/infra/cache/memorycache"
	"readyrent/internal/infra/storage/memory"
)

var rentalNow = time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

type rentalFixture struct {
	catalog     *memory.ProductCatalog
	bookings    *memory.BookingRepository
	inventory   *memory.InventoryRepository
	maintenance *memory.MaintenanceRepository
	outbox      *memory.Outbox
	service     *rental.Service
}

func newRentalFixture(t *testing.T) *rentalFixture {
	t.Helper()
	f := &rentalFixture{
		catalog:     memory.NewProductCatalog(),
		bookings:    memory.NewBookingRepository(),
		inventory:   memory.NewInventoryRepository(),
		maintenance: memory.NewMaintenanceRepository(),
		outbox:      memory.NewOutbox(),
	}
	factory := memory.Factory{
		BookingRepo:     f.bookings,
		InventoryRepo:   f.inventory,
		MovementLog:     memory.NewMovementLog(),
		AlertRepo:       memory.NewAlertRepository(),
		MaintenanceRepo: f.maintenance,
	}
	checker := availability.NewChecker(
		f.catalog,
		f.inventory,
		domainmaintenance.NewCalendar(f.maintenance),
		f.bookings,
	)
	cached := availability.NewCachedChecker(checker, memorycache.New(0))
	ledgerSvc := &ledger.Service{
		UoWFactory: factory,
		Locks:      domaininventory.NewLocks(),
		Outbox:     f.outbox,
		Cache:      cached,
		Now:        func() time.Time { return rentalNow },
	}
	f.service = &rental.Service{
		UoWFactory:   factory,
		Checker:      cached,
		Ledger:       ledgerSvc,
		Cancellation: policy.NewCancellationEngine(policy.DefaultSchedule()),
		EarlyReturn:  policy.NewEarlyReturnCalculator(80),
		Outbox:       f.outbox,
		Cache:        cached,
		CleaningDays: 1,
		Now:          func() time.Time { return rentalNow },
	}
	return f
}

func (f *rentalFixture) addProduct(t *testing.T, id string, status domainproduct.Status) {
	t.Helper()
	f.catalog.Put(domainproduct.Product{ID: domainproduct.ProductID(id), Status: status, Category: "camera"})
}

func (f *rentalFixture) addStock(t *testing.T, id string, total int) {
	t.Helper()
	record, err := domaininventory.NewRecord(domainproduct.ProductID(id), total, 0, rentalNow)
	require.NoError(t, err)
	require.NoError(t, f.inventory.Save(context.Background(), record))
}

func (f *rentalFixture) stock(t *testing.T, id string) *domaininventory.Record {
	t.Helper()
	record, err := f.inventory.ByProduct(context.Background(), domainproduct.ProductID(id))
	require.NoError(t, err)
	return record
}

func futureSpan(startDay, endDay int) (time.Time, time.Time) {
	return time.Date(2025, time.June, startDay, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, endDay, 0, 0, 0, 0, time.UTC)
}

func price(t *testing.T, amount int64) money.Money {
	t.Helper()
	m, err := money.New(amount, "USD")
	require.NoError(t, err)
	return m
}

func TestCreateBookingReservesStock(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 2)

	start, end := futureSpan(10, 14)
	b, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, domainbooking.StatusPending, b.Status)
	assert.Equal(t, 5, b.TotalDays)

	record := f.stock(t, "p1")
	assert.Equal(t, 1, record.QuantityAvailable)
	assert.Equal(t, 1, record.QuantityRented)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.ID)
}

func TestCreateBookingRejectsPastStart(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)

	start, end := futureSpan(10, 14)
	_, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start.AddDate(0, -1, 0),
		End:        end,
		TotalPrice: price(t, 50000),
	})
	assert.ErrorIs(t, err, domainbooking.ErrStartInPast)
}

func TestCreateBookingPreflightRejection(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusMaintenance)

	start, end := futureSpan(10, 14)
	_, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	var unavailable rental.ErrUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, availability.ReasonProductUnavailable, unavailable.Reason)
}

func TestConcurrentCreateLastUnit(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 1)

	start, end := futureSpan(10, 14)
	params := rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = f.service.CreateBooking(context.Background(), params)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)

	record := f.stock(t, "p1")
	assert.Equal(t, 0, record.QuantityAvailable)
	assert.Equal(t, 1, record.QuantityRented)
	require.NoError(t, record.CheckInvariant())
}

func TestCreateBookingUntrackedProductConflict(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)

	start, end := futureSpan(10, 14)
	params := rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	}
	_, err := f.service.CreateBooking(context.Background(), params)
	require.NoError(t, err)

	// single-unit product: any overlap refuses the second booking
	_, err = f.service.CreateBooking(context.Background(), params)
	var unavailable rental.ErrUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, availability.ReasonConflict, unavailable.Reason)
}

func TestCancelBookingReturnsStock(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 1)

	start, end := futureSpan(10, 14)
	b, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	require.NoError(t, err)

	// nine days of lead time: free cancellation, full refund
	result, err := f.service.CancelBooking(context.Background(), b.ID, "change of plans")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 0, result.Fee.FeePercent)
	assert.Equal(t, int64(0), result.Fee.FeeAmount.Amount)
	assert.Equal(t, int64(50000), result.Fee.RefundAmount.Amount)

	record := f.stock(t, "p1")
	assert.Equal(t, 1, record.QuantityAvailable)
	assert.Equal(t, 0, record.QuantityRented)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
}

func TestCancelBookingDeniedInUse(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 1)

	start, end := futureSpan(10, 14)
	b, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	require.NoError(t, err)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Confirm(rentalNow))
	require.NoError(t, stored.Start(rentalNow))
	stored.ClearEvents()
	require.NoError(t, f.bookings.Save(context.Background(), stored))

	result, err := f.service.CancelBooking(context.Background(), b.ID, "")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.NotEmpty(t, result.Reason)

	record := f.stock(t, "p1")
	assert.Equal(t, 1, record.QuantityRented)
}

func TestProcessReturnEarlyRefundAndCleaning(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 1)

	start, end := futureSpan(10, 14)
	b, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	require.NoError(t, err)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Confirm(rentalNow))
	require.NoError(t, stored.Start(rentalNow))
	stored.ClearEvents()
	require.NoError(t, f.bookings.Save(context.Background(), stored))

	// one day early on a 5-day, 50000 booking at 80%: 10000/day -> 8000 back
	returnDate := end.AddDate(0, 0, -1)
	result, err := f.service.ProcessReturn(context.Background(), b.ID, returnDate)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Refund.UnusedDays)
	assert.Equal(t, int64(8000), result.Refund.RefundAmount.Amount)
	assert.Equal(t, int64(8000), result.Refund.RefundPerDay.Amount)

	stored, err = f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCompleted, stored.Status)

	// unit released from the booking, then quarantined for cleaning
	record := f.stock(t, "p1")
	assert.Equal(t, 0, record.QuantityRented)
	assert.Equal(t, 1, record.QuantityMaintenance)
	assert.Equal(t, 0, record.QuantityAvailable)
	require.NoError(t, record.CheckInvariant())

	cleaningDay := datespan.DateSpan{
		Start: datespan.DateOf(returnDate).AddDate(0, 0, 1),
		End:   datespan.DateOf(returnDate).AddDate(0, 0, 1),
	}
	windows, err := f.maintenance.BlockingOverlapping(context.Background(), "p1", cleaningDay)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, domainmaintenance.StatusScheduled, windows[0].Status)
	assert.True(t, windows[0].BlocksBookings)
}

func TestProcessReturnRejectsDateBeforeStart(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 1)

	start, end := futureSpan(10, 14)
	b, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	require.NoError(t, err)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Confirm(rentalNow))
	stored.ClearEvents()
	require.NoError(t, f.bookings.Save(context.Background(), stored))

	_, err = f.service.ProcessReturn(context.Background(), b.ID, start.AddDate(0, 0, -6))
	assert.ErrorIs(t, err, policy.ErrReturnBeforeStart)

	// the rejected return changed nothing
	stored, err = f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, stored.Status)
	record := f.stock(t, "p1")
	assert.Equal(t, 1, record.QuantityRented)
}

func TestProcessReturnOnTimeNoRefund(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)

	start, end := futureSpan(10, 14)
	b, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	require.NoError(t, err)

	stored, err := f.bookings.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Confirm(rentalNow))
	stored.ClearEvents()
	require.NoError(t, f.bookings.Save(context.Background(), stored))

	result, err := f.service.ProcessReturn(context.Background(), b.ID, end)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Refund.UnusedDays)
	assert.Equal(t, int64(0), result.Refund.RefundAmount.Amount)
}

func TestBookingLifecyclePublishesEvents(t *testing.T) {
	f := newRentalFixture(t)
	f.addProduct(t, "p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 1)

	start, end := futureSpan(10, 14)
	b, err := f.service.CreateBooking(context.Background(), rental.CreateBookingParams{
		ProductID:  "p1",
		Start:      start,
		End:        end,
		TotalPrice: price(t, 50000),
	})
	require.NoError(t, err)
	_, err = f.service.CancelBooking(context.Background(), b.ID, "weather")
	require.NoError(t, err)

	var names []string
	for _, rec := range f.outbox.Records() {
		names = append(names, rec.Name)
	}
	assert.Contains(t, names, "booking.created")
	assert.Contains(t, names, "booking.cancelled")
	assert.Contains(t, names, "inventory.stock_reserved")
	assert.Contains(t, names, "inventory.stock_released")
}
