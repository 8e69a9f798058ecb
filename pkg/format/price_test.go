package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "$1,234,568", Currency(1234567.89))
	assert.Equal(t, "$0", Currency(0))
	assert.Equal(t, "$999", Currency(999))
	assert.Equal(t, "-$1,500", Currency(-1500))
}

func TestCurrencyDetailed(t *testing.T) {
	assert.Equal(t, "$1,234,567.89", CurrencyDetailed(1234567.89, true))
	assert.Equal(t, "$1,234,568", CurrencyDetailed(1234567.89, false))
	assert.Equal(t, "$12.50", CurrencyDetailed(12.5, true))
}

func TestCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1500000, "$1.5M"},
		{2000000, "$2M"},
		{250000, "$250K"},
		{1250, "$1.3K"},
		{999999, "$1M"},
		{950, "$950"},
		{12.34, "$12.3"},
		{0, "$0"},
		{-2500000, "-$2.5M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compact(tt.in), "Compact(%v)", tt.in)
	}
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "1,234,567", Number(1234567))
	assert.Equal(t, "1,234,567.5", Number(1234567.5))
	assert.Equal(t, "0.125", Number(0.125))
	assert.Equal(t, "-42", Number(-42))
}

func TestParsePrice(t *testing.T) {
	tests := map[string]float64{
		"$1,250,000": 1250000,
		"$1.5M":      1500000,
		"250K":       250000,
		"300000":     300000,
		"-$2K":       -2000,
	}
	for in, want := range tests {
		got, err := ParsePrice(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-6, in)
	}

	_, err := ParsePrice("cheap")
	assert.Error(t, err)
}
