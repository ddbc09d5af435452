package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitsPerMajor is the number of cents in one real (BRL).
const MinorUnitsPerMajor = 100

var (
	ErrAmountNotNumeric = errors.New("amount is not numeric")
	ErrAmountNotFinite  = errors.New("amount is not finite")
)

var minorUnitsDivisor = decimal.NewFromInt(MinorUnitsPerMajor)

// FromMinorUnits converts the provider's integer cents into decimal currency.
// 50000 becomes 500.00.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(minorUnitsDivisor).Round(2)
}

// ToMinorUnits converts a decimal amount back into integer cents, rounding half away from zero.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Mul(minorUnitsDivisor).Round(0).IntPart()
}

// ParseAmount parses a decimal amount strictly. NaN, infinities and
// non-numeric text are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrAmountNotNumeric)
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountNotFinite, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountNotNumeric, raw)
	}
	return d, nil
}

// ParseAmountOrZero is the defensive conversion applied where aggregated rows
// enter the core: NULL, NaN and garbage all become zero.
func ParseAmountOrZero(raw *string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	d, err := ParseAmount(*raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
