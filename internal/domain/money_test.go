package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, "500.00", FromMinorUnits(50_000).StringFixed(2))
	assert.True(t, FromMinorUnits(25_000).Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "0.01", FromMinorUnits(1).StringFixed(2))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(50_000), ToMinorUnits(decimal.RequireFromString("500.00")))
	assert.Equal(t, int64(1_999), ToMinorUnits(decimal.RequireFromString("19.99")))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 300.50 ")
	require.NoError(t, err)
	assert.Equal(t, "300.5", d.String())

	for _, raw := range []string{"", "NaN", "nan", "invalid", "Infinity", "-inf", "1,5"} {
		_, err := ParseAmount(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseAmountOrZero(t *testing.T) {
	nan := "NaN"
	invalid := "invalid"
	ok := "125.40"

	assert.True(t, ParseAmountOrZero(nil).IsZero())
	assert.True(t, ParseAmountOrZero(&nan).IsZero())
	assert.True(t, ParseAmountOrZero(&invalid).IsZero())
	assert.Equal(t, "125.4", ParseAmountOrZero(&ok).String())
}
