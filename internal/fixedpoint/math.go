package fixedpoint

import "math/big"

// Series parameters. Downstream prices depend on the exact integer output of
// Exp and Ln, so these must not be tuned.
const (
	expTerms = 12
	lnTerms  = 30
)

var (
	// MaxExpInput is the largest argument Exp evaluates; larger inputs are
	// clamped to it (6.0).
	MaxExpInput = Units(6)

	// Ln2 is ln(2) to 18 fractional digits.
	Ln2 = MustParse("693147180559945309")

	// lnTolerance stops the ln series once a term falls below 1e-12.
	lnTolerance = NewFromInt(1_000_000)

	twoScale = Units(2)
)

// Exp returns e^x for a fixed-point x using a 12-term Taylor series.
// x is clamped to MaxExpInput before evaluation. The series stops early once
// a term truncates to zero.
func Exp(x Amount) Amount {
	if x.Cmp(MaxExpInput) > 0 {
		x = MaxExpInput
	}
	scale := Scale.raw()
	xv := x.raw()

	result := new(big.Int).Set(scale)
	term := new(big.Int).Set(scale)
	den := new(big.Int)
	for i := int64(1); i <= expTerms; i++ {
		den.Mul(big.NewInt(i), scale)
		term.Mul(term, xv)
		term.Quo(term, den)
		if new(big.Int).Abs(term).Cmp(bigOne) < 0 {
			break
		}
		result.Add(result, term)
	}
	return Amount{result}
}

// Ln returns the natural logarithm of a fixed-point x.
//
// Ln saturates at zero: any x <= 1.0 returns Zero rather than an error.
// Larger arguments are halved until they fall below 2.0, and the residual is
// evaluated with the alternating series ln(1+y) = y - y²/2 + y³/3 - …
//
//	ln(x) = k·ln(2) + ln(x / 2^k)
func Ln(x Amount) Amount {
	if x.Cmp(Scale) <= 0 {
		return Zero
	}
	scale := Scale.raw()
	two := big.NewInt(2)

	v := x.Big()
	k := int64(0)
	for v.Cmp(twoScale.raw()) >= 0 {
		v.Quo(v, two)
		k++
	}

	y := new(big.Int).Sub(v, scale)
	sum := new(big.Int)
	pow := new(big.Int).Set(scale)
	term := new(big.Int)
	for i := int64(1); i <= lnTerms; i++ {
		pow.Mul(pow, y)
		pow.Quo(pow, scale)
		term.Quo(pow, big.NewInt(i))
		if term.Cmp(lnTolerance.raw()) < 0 {
			break
		}
		if i%2 == 1 {
			sum.Add(sum, term)
			continue
		}
		// Never let a subtraction carry the accumulator through zero.
		if term.Cmp(sum) >= 0 {
			break
		}
		sum.Sub(sum, term)
	}

	result := new(big.Int).Mul(big.NewInt(k), Ln2.raw())
	return Amount{result.Add(result, sum)}
}
