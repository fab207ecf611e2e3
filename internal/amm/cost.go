package amm

import (
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// Cost returns C(yes, no) = b·ln(e^(yes/b) + e^(no/b)).
//
// The sum is stabilised by factoring out the larger side:
//
//	C = m + b·ln(1 + e^(-gap/b)),  m = max(yes, no), gap = |yes - no|
//
// so no exponential argument ever exceeds gap/b, and that is clamped by Exp.
func Cost(s State) fp.Amount {
	b := LiquidityParameter(s)
	m := fp.Max(s.Yes, s.No)
	if b.Sign() <= 0 {
		return m
	}
	small := expSmall(s, b)
	return m.Add(fp.MulDiv(b, fp.Ln(fp.Scale.Add(small)), fp.Scale))
}

// expSmall returns e^(-gap/b) as Scale²/e^(gap/b). The larger side's term
// is fixed at Scale.
func expSmall(s State, b fp.Amount) fp.Amount {
	gap := s.Yes.Sub(s.No).Abs()
	e := fp.Exp(fp.MulDiv(gap, fp.Scale, b))
	return fp.MulDiv(fp.Scale, fp.Scale, e)
}

// TradeCost returns the collateral needed to add delta shares to one side:
// C(after) - C(before), floored at zero.
func TradeCost(s State, isYes bool, delta fp.Amount) fp.Amount {
	return Cost(s.With(isYes, delta)).Sub(Cost(s)).FloorZero()
}

// SellPayout returns the collateral released by removing shares from one
// side: C(before) - C(after), floored at zero.
func SellPayout(s State, isYes bool, shares fp.Amount) fp.Amount {
	return Cost(s).Sub(Cost(s.With(isYes, shares.Neg()))).FloorZero()
}
