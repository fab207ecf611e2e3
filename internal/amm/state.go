// Package amm prices binary YES/NO outcome shares with a liquidity-sensitive
// logarithmic market scoring rule (LS-LMSR).
//
// Every function here is pure: it reads a State value and returns a result,
// so quotes may be computed concurrently without coordination. All
// arithmetic is fixed point and truncating; see package fixedpoint.
package amm

import (
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// State is the share state the pricing functions evaluate.
type State struct {
	Yes          fp.Amount // outstanding YES shares
	No           fp.Amount // outstanding NO shares
	Alpha        fp.Amount // spread control, e.g. 0.03 for 3 %
	MinLiquidity fp.Amount // floor on the liquidity parameter b
}

// With returns a copy of s with delta added to the chosen side.
// A negative delta removes shares.
func (s State) With(isYes bool, delta fp.Amount) State {
	if isYes {
		s.Yes = s.Yes.Add(delta)
	} else {
		s.No = s.No.Add(delta)
	}
	return s
}

// Side returns the outstanding shares on the chosen side.
func (s State) Side(isYes bool) fp.Amount {
	if isYes {
		return s.Yes
	}
	return s.No
}

// LiquidityParameter returns b = max(alpha·(yes+no), minLiquidity).
//
// b is derived from whatever share state is being evaluated; it is never
// cached, so cost and price always agree on it.
func LiquidityParameter(s State) fp.Amount {
	b := fp.MulDiv(s.Alpha, s.Yes.Add(s.No), fp.Scale)
	return fp.Max(b, s.MinLiquidity)
}

// Fee returns amount·bps/10000, truncated.
func Fee(amount fp.Amount, bps int64) fp.Amount {
	return amount.MulInt(bps).QuoInt(10_000)
}
