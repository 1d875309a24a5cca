package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(1000, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)

	_, err = New(1000, "us")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddSubCurrencyMismatch(t *testing.T) {
	usd := Must(1000, "USD")
	eur := Must(1000, "EUR")
	_, err := usd.Add(eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = usd.Sub(eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestDivideTruncates(t *testing.T) {
	m := Must(1000, "USD")
	perDay, err := m.Divide(3)
	require.NoError(t, err)
	assert.Equal(t, int64(333), perDay.Amount)

	_, err = m.Divide(0)
	assert.ErrorIs(t, err, ErrZeroDivisor)
}

func TestPercent(t *testing.T) {
	m := Must(20000, "USD")
	assert.Equal(t, int64(5000), m.Percent(25).Amount)
	assert.Equal(t, int64(0), m.Percent(0).Amount)
	assert.Equal(t, int64(0), m.Percent(-10).Amount)
	assert.Equal(t, int64(20000), m.Percent(150).Amount)
}

func TestPercentTruncatesTowardZero(t *testing.T) {
	m := Must(999, "USD")
	assert.Equal(t, int64(99), m.Percent(10).Amount)
}
