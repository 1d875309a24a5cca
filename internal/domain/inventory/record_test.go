package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestRecord(t *testing.T, total, threshold int) *Record {
	t.Helper()
	r, err := NewRecord("prod-1", total, threshold, testNow)
	require.NoError(t, err)
	return r
}

func requireInvariant(t *testing.T, r *Record) {
	t.Helper()
	require.NoError(t, r.CheckInvariant())
}

func TestReserveMovesAvailableToRented(t *testing.T) {
	r := newTestRecord(t, 5, 0)
	m, err := r.Reserve(2, Reference{Kind: "booking", ID: "b-1"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, r.QuantityAvailable)
	assert.Equal(t, 2, r.QuantityRented)
	assert.Equal(t, MovementOut, m.Kind)
	assert.Equal(t, 5, m.PreviousQuantity)
	assert.Equal(t, 3, m.NewQuantity)
	requireInvariant(t, r)
}

func TestReserveInsufficientStockMutatesNothing(t *testing.T) {
	r := newTestRecord(t, 1, 0)
	_, err := r.Reserve(2, Reference{}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 1, r.QuantityAvailable)
	assert.Equal(t, 0, r.QuantityRented)
	assert.Empty(t, r.PendingEvents())
	requireInvariant(t, r)
}

func TestReleaseFloorsRentedAtZero(t *testing.T) {
	r := newTestRecord(t, 3, 0)
	_, err := r.Reserve(1, Reference{}, testNow)
	require.NoError(t, err)

	// double release: only the single rented unit comes back, and the audit
	// row records the clamped amount, not the requested one
	m, err := r.Release(2, Reference{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, r.QuantityAvailable)
	assert.Equal(t, 0, r.QuantityRented)
	assert.Equal(t, 1, m.Quantity)
	assert.Equal(t, m.NewQuantity-m.PreviousQuantity, m.Quantity)
	requireInvariant(t, r)
}

func TestMaintenanceRoundTrip(t *testing.T) {
	r := newTestRecord(t, 4, 0)
	_, err := r.MoveToMaintenance(2, Reference{Kind: "window", ID: "w-1"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, r.QuantityAvailable)
	assert.Equal(t, 2, r.QuantityMaintenance)
	requireInvariant(t, r)

	_, err = r.ReturnFromMaintenance(2, Reference{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 4, r.QuantityAvailable)
	assert.Equal(t, 0, r.QuantityMaintenance)
	requireInvariant(t, r)
}

func TestReturnFromMaintenanceOverdraw(t *testing.T) {
	r := newTestRecord(t, 4, 0)
	_, err := r.ReturnFromMaintenance(1, Reference{}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	requireInvariant(t, r)
}

func TestAdjustPositiveGrowsTotalAndAvailable(t *testing.T) {
	r := newTestRecord(t, 2, 0)
	m, err := r.Adjust(3, Reference{Actor: "ops"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, r.QuantityTotal)
	assert.Equal(t, 5, r.QuantityAvailable)
	assert.Equal(t, MovementAdjustment, m.Kind)
	requireInvariant(t, r)
}

func TestAdjustNegativeRefusedBelowZero(t *testing.T) {
	r := newTestRecord(t, 3, 0)
	_, err := r.Reserve(2, Reference{}, testNow)
	require.NoError(t, err)

	_, err = r.Adjust(-2, Reference{}, testNow)
	assert.ErrorIs(t, err, ErrNegativeAdjustment)
	assert.Equal(t, 1, r.QuantityAvailable)
	requireInvariant(t, r)

	_, err = r.Adjust(-1, Reference{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, r.QuantityAvailable)
	assert.Equal(t, 2, r.QuantityTotal)
	requireInvariant(t, r)
}

func TestAdjustZeroRejected(t *testing.T) {
	r := newTestRecord(t, 3, 0)
	_, err := r.Adjust(0, Reference{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInvariantHoldsAcrossSequence(t *testing.T) {
	r := newTestRecord(t, 10, 2)
	ops := []func() error{
		func() error { _, err := r.Reserve(4, Reference{}, testNow); return err },
		func() error { _, err := r.MoveToMaintenance(2, Reference{}, testNow); return err },
		func() error { _, err := r.Release(1, Reference{}, testNow); return err },
		func() error { _, err := r.Adjust(5, Reference{}, testNow); return err },
		func() error { _, err := r.ReturnFromMaintenance(1, Reference{}, testNow); return err },
		func() error { _, err := r.Adjust(-3, Reference{}, testNow); return err },
	}
	for i, op := range ops {
		require.NoError(t, op(), "op %d", i)
		requireInvariant(t, r)
	}
}

func TestLowAndOutOfStock(t *testing.T) {
	r := newTestRecord(t, 3, 2)
	assert.False(t, r.LowOnStock())

	_, err := r.Reserve(1, Reference{}, testNow)
	require.NoError(t, err)
	assert.True(t, r.LowOnStock())
	assert.False(t, r.OutOfStock())

	_, err = r.Reserve(2, Reference{}, testNow)
	require.NoError(t, err)
	assert.False(t, r.LowOnStock())
	assert.True(t, r.OutOfStock())
}

func TestNewRecordDefaultsToSingleUnit(t *testing.T) {
	r, err := NewRecord("prod-2", 0, -1, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, r.QuantityTotal)
	assert.Equal(t, 1, r.QuantityAvailable)
	assert.Equal(t, 0, r.LowStockThreshold)
}
