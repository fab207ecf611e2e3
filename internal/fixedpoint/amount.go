// Package fixedpoint implements deterministic fixed-point arithmetic over
// integers scaled by 10^18. No floating point is used anywhere: two
// independent evaluations of the same inputs always agree to the last unit.
package fixedpoint

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the number of fractional digits carried by every Amount.
const Decimals = 18

// ──────────────────────────────────────────────────────────────────────────────
// Amount
// ──────────────────────────────────────────────────────────────────────────────

// Amount is an immutable signed integer interpreted as value / 10^18.
// The zero value is 0 and is ready to use. Every operation returns a new
// Amount; the receiver is never modified.
type Amount struct {
	i *big.Int
}

var (
	// Zero is the additive identity.
	Zero = Amount{}

	// Scale is 1.0 in fixed point (10^18).
	Scale = Amount{new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)}

	bigOne = big.NewInt(1)
)

// NewFromInt returns the raw integer n (not scaled).
func NewFromInt(n int64) Amount {
	return Amount{big.NewInt(n)}
}

// Units returns n whole units, i.e. n * Scale.
func Units(n int64) Amount {
	return Scale.Mul(NewFromInt(n))
}

// FromBig copies b into a new Amount. A nil b yields Zero.
func FromBig(b *big.Int) Amount {
	if b == nil {
		return Zero
	}
	return Amount{new(big.Int).Set(b)}
}

// Parse reads a base-10 raw integer such as "1500000000000000000".
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("fixedpoint.Parse: empty string")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Zero, fmt.Errorf("fixedpoint.Parse: invalid integer %q", s)
	}
	return Amount{v}, nil
}

// MustParse is Parse that panics on malformed input. For constants only.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) raw() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

// Big returns a copy of the underlying integer.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.raw())
}

// ── Arithmetic ───────────────────────────────────────────────────────────────

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{new(big.Int).Add(a.raw(), b.raw())}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{new(big.Int).Sub(a.raw(), b.raw())}
}

// Mul returns the raw product a * b. It does not rescale; callers divide by
// Scale themselves so the rounding point is explicit.
func (a Amount) Mul(b Amount) Amount {
	return Amount{new(big.Int).Mul(a.raw(), b.raw())}
}

// MulInt returns a * n.
func (a Amount) MulInt(n int64) Amount {
	return Amount{new(big.Int).Mul(a.raw(), big.NewInt(n))}
}

// Quo returns a / b truncated toward zero. Panics if b is zero.
func (a Amount) Quo(b Amount) Amount {
	return Amount{new(big.Int).Quo(a.raw(), b.raw())}
}

// QuoInt returns a / n truncated toward zero. Panics if n is zero.
func (a Amount) QuoInt(n int64) Amount {
	return Amount{new(big.Int).Quo(a.raw(), big.NewInt(n))}
}

// MulDiv returns a * b / c truncated toward zero.
func MulDiv(a, b, c Amount) Amount {
	p := new(big.Int).Mul(a.raw(), b.raw())
	return Amount{p.Quo(p, c.raw())}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{new(big.Int).Neg(a.raw())}
}

// Abs returns |a|.
func (a Amount) Abs() Amount {
	return Amount{new(big.Int).Abs(a.raw())}
}

// FloorZero returns a, or Zero when a is negative.
func (a Amount) FloorZero() Amount {
	if a.Sign() < 0 {
		return Zero
	}
	return a
}

// ── Comparison ───────────────────────────────────────────────────────────────

// Cmp returns -1, 0 or +1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int { return a.raw().Cmp(b.raw()) }

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int { return a.raw().Sign() }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.Sign() == 0 }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.Cmp(b) > 0 }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.Cmp(b) == 0 }

// BitLen returns the bit length of |a|.
func (a Amount) BitLen() int { return a.raw().BitLen() }

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// ── Encoding ─────────────────────────────────────────────────────────────────

// String returns the raw integer in base 10.
func (a Amount) String() string { return a.raw().String() }

// MarshalJSON encodes the raw integer as a JSON string so no client parses
// it through a float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a quoted or bare base-10 integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = Zero
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case int64:
		*a = NewFromInt(v)
		return nil
	case []byte:
		return a.scanString(string(v))
	case string:
		return a.scanString(v)
	default:
		return fmt.Errorf("fixedpoint.Amount.Scan: unsupported type %T", src)
	}
}

func (a *Amount) scanString(s string) error {
	// NUMERIC(78,0) columns may still come back as "123.0" from some drivers.
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}
