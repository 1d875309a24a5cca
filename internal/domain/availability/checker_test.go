package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readyrent/internal/domain/availability"
	domainbooking "readyrent/internal/domain/booking"
	domaininventory "readyrent/internal/domain/inventory"
	domainmaintenance "readyrent/internal/domain/maintenance"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
	"readyrent/internal/infra/storage/memory"
)

type fixture struct {
	catalog     *memory.ProductCatalog
	inventory   *memory.InventoryRepository
	maintenance *memory.MaintenanceRepository
	bookings    *memory.BookingRepository
	checker     *availability.Checker
}

func newFixture() *fixture {
	f := &fixture{
		catalog:     memory.NewProductCatalog(),
		inventory:   memory.NewInventoryRepository(),
		maintenance: memory.NewMaintenanceRepository(),
		bookings:    memory.NewBookingRepository(),
	}
	f.checker = availability.NewChecker(f.catalog, f.inventory, domainmaintenance.NewCalendar(f.maintenance), f.bookings)
	return f
}

func (f *fixture) addProduct(id string, status domainproduct.Status) {
	f.catalog.Put(domainproduct.Product{ID: domainproduct.ProductID(id), Status: status, Category: "camera"})
}

func (f *fixture) addStock(t *testing.T, id string, total int) {
	t.Helper()
	record, err := domaininventory.NewRecord(domainproduct.ProductID(id), total, 0, fixtureNow)
	require.NoError(t, err)
	require.NoError(t, f.inventory.Save(context.Background(), record))
}

func (f *fixture) addBooking(t *testing.T, id, productID string, span datespan.DateSpan, status domainbooking.Status) {
	t.Helper()
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		ProductID:  domainproduct.ProductID(productID),
		Span:       span,
		TotalPrice: money.Must(10000, "USD"),
		CreatedAt:  fixtureNow,
	})
	require.NoError(t, err)
	b.Status = status
	b.ClearEvents()
	require.NoError(t, f.bookings.Save(context.Background(), b))
}

func (f *fixture) addMaintenance(t *testing.T, productID string, span datespan.DateSpan, blocks bool, status domainmaintenance.WindowStatus) {
	t.Helper()
	require.NoError(t, f.maintenance.Save(context.Background(), &domainmaintenance.Window{
		ID:             "win-" + productID + span.Start.Format("20060102"),
		ProductID:      domainproduct.ProductID(productID),
		StartAt:        span.Start,
		EndAt:          span.End,
		BlocksBookings: blocks,
		Status:         status,
		CreatedAt:      fixtureNow,
	}))
}

var fixtureNow = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func span(startDay, endDay int) datespan.DateSpan {
	return datespan.Must(
		time.Date(2025, time.June, startDay, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, endDay, 0, 0, 0, 0, time.UTC),
	)
}

func TestCheckUnknownProduct(t *testing.T) {
	f := newFixture()
	result, err := f.checker.Check(context.Background(), "ghost", span(10, 15), "")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, availability.ReasonProductNotFound, result.Reason)
}

func TestCheckUnbookableProductStatus(t *testing.T) {
	f := newFixture()
	for _, status := range []domainproduct.Status{
		domainproduct.StatusRented,
		domainproduct.StatusMaintenance,
		domainproduct.StatusUnavailable,
	} {
		f.addProduct("p1", status)
		result, err := f.checker.Check(context.Background(), "p1", span(10, 15), "")
		require.NoError(t, err)
		assert.Equal(t, availability.ReasonProductUnavailable, result.Reason, "status=%s", status)
	}
}

func TestCheckStatusOutranksStockAndConflicts(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusUnavailable)
	f.addStock(t, "p1", 0)
	f.addBooking(t, "b1", "p1", span(10, 15), domainbooking.StatusConfirmed)

	result, err := f.checker.Check(context.Background(), "p1", span(10, 15), "")
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonProductUnavailable, result.Reason)
}

func TestCheckOutOfStockOutranksMaintenance(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	record, err := domaininventory.NewRecord("p1", 2, 0, fixtureNow)
	require.NoError(t, err)
	_, err = record.Reserve(2, domaininventory.Reference{}, fixtureNow)
	require.NoError(t, err)
	require.NoError(t, f.inventory.Save(context.Background(), record))
	f.addMaintenance(t, "p1", span(10, 15), true, domainmaintenance.StatusScheduled)

	result, err := f.checker.Check(context.Background(), "p1", span(10, 15), "")
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonOutOfStock, result.Reason)
}

func TestCheckMaintenanceBlackout(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 3)
	f.addMaintenance(t, "p1", span(12, 13), true, domainmaintenance.StatusScheduled)

	result, err := f.checker.Check(context.Background(), "p1", span(10, 15), "")
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonMaintenance, result.Reason)

	// non-blocking and finished windows do not count
	f2 := newFixture()
	f2.addProduct("p1", domainproduct.StatusAvailable)
	f2.addStock(t, "p1", 3)
	f2.addMaintenance(t, "p1", span(12, 13), false, domainmaintenance.StatusScheduled)
	f2.addMaintenance(t, "p1", span(12, 13), true, domainmaintenance.StatusCompleted)

	result, err = f2.checker.Check(context.Background(), "p1", span(10, 15), "")
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckSingleUnitFallback(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	// no inventory record: one conflict blocks
	f.addBooking(t, "b1", "p1", span(14, 18), domainbooking.StatusPending)

	result, err := f.checker.Check(context.Background(), "p1", span(10, 15), "")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, availability.ReasonConflict, result.Reason)
	assert.Equal(t, 1, result.ConflictCount)

	result, err = f.checker.Check(context.Background(), "p1", span(19, 25), "")
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckMultiUnitScenario(t *testing.T) {
	// two units, two overlapping bookings: fully booked; one cancelled frees a slot
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	f.addStock(t, "p1", 2)
	f.addBooking(t, "b1", "p1", span(10, 15), domainbooking.StatusConfirmed)
	f.addBooking(t, "b2", "p1", span(12, 17), domainbooking.StatusPending)

	result, err := f.checker.Check(context.Background(), "p1", span(13, 14), "")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, availability.ReasonFullyBooked, result.Reason)
	assert.Equal(t, 2, result.ConflictCount)

	// completed and cancelled bookings stop occupying
	b, err := f.bookings.ByID(context.Background(), "b2")
	require.NoError(t, err)
	b.Status = domainbooking.StatusCancelled
	require.NoError(t, f.bookings.Save(context.Background(), b))

	result, err = f.checker.Check(context.Background(), "p1", span(13, 14), "")
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Equal(t, 1, result.ConflictCount)
}

func TestCheckExcludesOwnBooking(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	f.addBooking(t, "b1", "p1", span(10, 15), domainbooking.StatusConfirmed)

	result, err := f.checker.Check(context.Background(), "p1", span(10, 15), "b1")
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckSharedBoundaryConflicts(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	f.addBooking(t, "b1", "p1", span(10, 15), domainbooking.StatusConfirmed)

	result, err := f.checker.Check(context.Background(), "p1", span(15, 20), "")
	require.NoError(t, err)
	assert.False(t, result.Available)

	result, err = f.checker.Check(context.Background(), "p1", span(16, 20), "")
	require.NoError(t, err)
	assert.True(t, result.Available)
}

// contendedInventory simulates a record held by a concurrent mutation: every
// stock read fails with lock contention.
type contendedInventory struct {
	calls int
}

func (r *contendedInventory) ByProduct(ctx context.Context, id domainproduct.ProductID) (*domaininventory.Record, error) {
	r.calls++
	return nil, domaininventory.ErrLockContention
}

func (r *contendedInventory) ByProducts(ctx context.Context, ids []domainproduct.ProductID) (map[domainproduct.ProductID]*domaininventory.Record, error) {
	return map[domainproduct.ProductID]*domaininventory.Record{}, nil
}

func (r *contendedInventory) Save(ctx context.Context, record *domaininventory.Record) error {
	return nil
}

func TestCheckLockedStockFailsClosed(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	stock := &contendedInventory{}
	checker := availability.NewChecker(f.catalog, stock, domainmaintenance.NewCalendar(f.maintenance), f.bookings)

	result, err := checker.Check(context.Background(), "p1", span(10, 15), "")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, availability.ReasonStockUnverified, result.Reason)
}

func TestCheckManyMatchesPerProductCheck(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	f.addProduct("p2", domainproduct.StatusUnavailable)
	f.addProduct("p3", domainproduct.StatusAvailable)
	f.addStock(t, "p3", 2)
	f.addBooking(t, "b1", "p1", span(10, 15), domainbooking.StatusConfirmed)
	f.addBooking(t, "b2", "p3", span(10, 15), domainbooking.StatusConfirmed)
	f.addMaintenance(t, "p3", span(1, 5), true, domainmaintenance.StatusScheduled)

	ids := []domainproduct.ProductID{"p1", "p2", "p3", "ghost"}
	batch, err := f.checker.CheckMany(context.Background(), ids, span(10, 15))
	require.NoError(t, err)
	require.Len(t, batch, 4)

	for _, id := range ids {
		single, err := f.checker.Check(context.Background(), id, span(10, 15), "")
		require.NoError(t, err)
		assert.Equal(t, single, batch[id], "product=%s", id)
	}
}

func TestAvailableDatesSkipsBookedDays(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)
	f.addBooking(t, "b1", "p1", span(12, 13), domainbooking.StatusConfirmed)

	seq, err := f.checker.AvailableDates(context.Background(), "p1", span(10, 16), 0)
	require.NoError(t, err)

	var days []int
	for d := range seq {
		days = append(days, d.Day())
	}
	assert.Equal(t, []int{10, 11, 14, 15, 16}, days)

	// the sequence restarts cleanly
	var again []int
	for d := range seq {
		again = append(again, d.Day())
		if len(again) == 2 {
			break
		}
	}
	assert.Equal(t, []int{10, 11}, again)
}

func TestAvailableDatesHonorsMaxDays(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", domainproduct.StatusAvailable)

	seq, err := f.checker.AvailableDates(context.Background(), "p1", span(1, 30), 7)
	require.NoError(t, err)
	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 7, count)
}
