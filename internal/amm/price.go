package amm

import (
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// Prices returns the current YES and NO prices.
//
//	price_yes = σ + α·H
//	price_no  = (1 - σ) + α·H
//	H         = softplus(d) - σ_large·d,  softplus(d) = ln(e^d + 1),  d = gap/b
//
// σ is the softmax weight of YES. H is clamped at zero, so the two prices
// always sum to at least 1.0; the excess is the market's spread. A market
// with equal shares on both sides prices both outcomes identically.
func Prices(s State) (yes, no fp.Amount) {
	b := LiquidityParameter(s)
	if b.Sign() <= 0 {
		half := fp.Scale.QuoInt(2)
		return half, half
	}

	gap := s.Yes.Sub(s.No).Abs()
	diff := fp.Min(fp.MulDiv(gap, fp.Scale, b), fp.MaxExpInput)

	small := expSmall(s, b)
	denom := fp.Scale.Add(small)
	large := fp.MulDiv(fp.Scale, fp.Scale, denom)

	softYes := large
	if s.Yes.LessThan(s.No) {
		softYes = fp.MulDiv(small, fp.Scale, denom)
	}

	softplus := fp.Ln(fp.Exp(diff).Add(fp.Scale))
	h := softplus.Sub(fp.MulDiv(large, diff, fp.Scale)).FloorZero()
	spread := fp.MulDiv(s.Alpha, h, fp.Scale)

	yes = softYes.Add(spread)
	no = fp.Scale.Sub(softYes).Add(spread)
	return yes, no
}

// Price returns the price of one side.
func Price(s State, isYes bool) fp.Amount {
	yes, no := Prices(s)
	if isYes {
		return yes
	}
	return no
}
