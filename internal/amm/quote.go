package amm

import (
	"errors"

	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ErrExceedsSupply is returned when a sell would take a side below zero.
var ErrExceedsSupply = errors.New("amm: shares exceed outstanding supply")

// TradeQuote is a read-only preview of a buy or sell at the current state.
// Nothing in it is persisted.
type TradeQuote struct {
	IsYes  bool      `json:"is_yes"`
	Shares fp.Amount `json:"shares"`
	// Cost is the collateral charged for Shares (buy only).
	Cost fp.Amount `json:"cost"`
	// Payout is the collateral the seller receives after fee (sell only).
	Payout fp.Amount `json:"payout"`
	Fee    fp.Amount `json:"fee"`
	// Refund is the unspent part of the payment after fee (buy only).
	Refund fp.Amount `json:"refund"`

	YesPriceBefore fp.Amount `json:"yes_price_before"`
	NoPriceBefore  fp.Amount `json:"no_price_before"`
	YesPriceAfter  fp.Amount `json:"yes_price_after"`
	NoPriceAfter   fp.Amount `json:"no_price_after"`
	// AvgPrice is the gross collateral per share for this trade.
	AvgPrice fp.Amount `json:"avg_price"`
	// PriceImpact is the change in the traded side's price.
	PriceImpact fp.Amount `json:"price_impact"`
}

// QuoteBuy previews spending gross collateral on one side. The fee is taken
// from gross and the remainder is sized with SolveShares.
func QuoteBuy(s State, isYes bool, gross fp.Amount, feeBps int64) TradeQuote {
	q := TradeQuote{IsYes: isYes}
	q.YesPriceBefore, q.NoPriceBefore = Prices(s)
	if gross.Sign() <= 0 {
		q.YesPriceAfter, q.NoPriceAfter = q.YesPriceBefore, q.NoPriceBefore
		return q
	}

	q.Fee = Fee(gross, feeBps)
	net := gross.Sub(q.Fee)
	q.Shares = SolveShares(s, isYes, net)
	q.Cost = TradeCost(s, isYes, q.Shares)
	q.Refund = net.Sub(q.Cost)

	q.fill(s.With(isYes, q.Shares), q.Cost)
	return q
}

// QuoteSell previews selling shares back to the market.
func QuoteSell(s State, isYes bool, shares fp.Amount, feeBps int64) (TradeQuote, error) {
	q := TradeQuote{IsYes: isYes, Shares: shares}
	if shares.GreaterThan(s.Side(isYes)) {
		return q, ErrExceedsSupply
	}
	q.YesPriceBefore, q.NoPriceBefore = Prices(s)

	gross := SellPayout(s, isYes, shares)
	q.Fee = Fee(gross, feeBps)
	q.Payout = gross.Sub(q.Fee)

	q.fill(s.With(isYes, shares.Neg()), gross)
	return q, nil
}

func (q *TradeQuote) fill(after State, gross fp.Amount) {
	q.YesPriceAfter, q.NoPriceAfter = Prices(after)
	if q.Shares.Sign() > 0 {
		q.AvgPrice = fp.MulDiv(gross, fp.Scale, q.Shares)
	}
	if q.IsYes {
		q.PriceImpact = q.YesPriceAfter.Sub(q.YesPriceBefore)
	} else {
		q.PriceImpact = q.NoPriceAfter.Sub(q.NoPriceBefore)
	}
}
