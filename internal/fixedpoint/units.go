package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FromDecimal converts a real-valued decimal (e.g. "10.25") to fixed point,
// truncating anything beyond 18 fractional digits.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d.Shift(Decimals).BigInt()}
}

// ParseDecimal parses a real-valued decimal string into fixed point.
func ParseDecimal(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("fixedpoint.ParseDecimal: %w", err)
	}
	return FromDecimal(d), nil
}

// Decimal returns the real value of a as a decimal (a / 10^18).
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.raw(), -Decimals)
}

// ToUnits converts an 18-digit amount into the native integer units of a
// collateral token with the given decimals, truncating toward zero.
// A 6-decimal stable token turns 1.5e18 into 1_500_000.
func ToUnits(a Amount, decimals int32) Amount {
	switch {
	case decimals == Decimals:
		return a
	case decimals < Decimals:
		return a.Quo(pow10(Decimals - decimals))
	default:
		return a.Mul(pow10(decimals - Decimals))
	}
}

// FromUnits converts native collateral units into the 18-digit scale.
func FromUnits(units Amount, decimals int32) Amount {
	switch {
	case decimals == Decimals:
		return units
	case decimals < Decimals:
		return units.Mul(pow10(Decimals - decimals))
	default:
		return units.Quo(pow10(decimals - Decimals))
	}
}

func pow10(n int32) Amount {
	return Amount{new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)}
}
