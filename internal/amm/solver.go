package amm

import (
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

const (
	// minBisections is the floor on halvings of the search window.
	minBisections = 64
	// maxWidenings bounds the doubling of the initial window. TradeCost grows
	// at least linearly in shares, so this is never reached in practice.
	maxWidenings = 256
)

var two = fp.NewFromInt(2)

// SolveShares returns the largest share quantity q such that
// TradeCost(s, isYes, q) <= payment. The result satisfies
//
//	TradeCost(q) <= payment < TradeCost(q+1)
//
// The search starts from the window [0, 2·payment]. The upper bound is
// doubled until it prices above payment, then the window is bisected until
// it is one unit wide.
func SolveShares(s State, isYes bool, payment fp.Amount) fp.Amount {
	if payment.Sign() <= 0 {
		return fp.Zero
	}

	low := fp.Zero
	high := payment.Mul(two)
	for i := 0; i < maxWidenings && !TradeCost(s, isYes, high).GreaterThan(payment); i++ {
		low = high
		high = high.Mul(two)
	}

	iterations := high.Sub(low).BitLen() + 1
	if iterations < minBisections {
		iterations = minBisections
	}
	one := fp.NewFromInt(1)
	for i := 0; i < iterations && high.Sub(low).GreaterThan(one); i++ {
		mid := low.Add(high).Quo(two)
		if TradeCost(s, isYes, mid).GreaterThan(payment) {
			high = mid
		} else {
			low = mid
		}
	}
	return low
}
