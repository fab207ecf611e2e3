package engine

import (
	"errors"

	"github.com/evetabi/amm/internal/amm"
	"github.com/evetabi/amm/internal/domain"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Buy
// ──────────────────────────────────────────────────────────────────────────────

// BuyResult is the outcome of a settled buy.
type BuyResult struct {
	Shares fp.Amount
	Cost   fp.Amount
	Refund fp.Amount
	Fee    fp.Amount
	Quote  amm.TradeQuote
	Event  domain.PurchaseEvent
	Trade  *domain.Trade
}

// Buy spends gross collateral on one side of m for the holder of p.
//
// The fee is taken from gross and accrues to the creator. The remainder buys
// the largest share quantity it can afford; any unspent part is refunded.
// Fails with a *domain.SlippageError if fewer than minShares would be bought.
func (e *Engine) Buy(m *domain.Market, p *domain.Position, isYes bool, gross, minShares fp.Amount) (*BuyResult, error) {
	if !m.IsActive() {
		return nil, domain.ErrMarketResolved
	}
	if gross.Sign() <= 0 || minShares.Sign() < 0 {
		return nil, domain.ErrInvalidAmount
	}

	q := amm.QuoteBuy(m.State(), isYes, gross, m.FeeRateBps)
	if q.Shares.IsZero() {
		return nil, domain.ErrZeroShares
	}
	if q.Shares.LessThan(minShares) {
		return nil, &domain.SlippageError{Bound: "min_shares", Min: minShares, Got: q.Shares}
	}

	m.AddShares(isYes, q.Shares)
	m.TotalCollateral = m.TotalCollateral.Add(q.Cost)
	m.PendingCreatorFees = m.PendingCreatorFees.Add(q.Fee)
	m.UpdatedAt = e.Now()
	p.Credit(isYes, q.Shares)
	p.UpdatedAt = m.UpdatedAt

	t := e.newTrade(m, p.Holder, domain.TradeBuy, isYes)
	t.Shares, t.Amount, t.Fee, t.Refund = q.Shares, q.Cost, q.Fee, q.Refund

	return &BuyResult{
		Shares: q.Shares,
		Cost:   q.Cost,
		Refund: q.Refund,
		Fee:    q.Fee,
		Quote:  q,
		Event: domain.PurchaseEvent{
			MarketID: m.ID,
			Buyer:    p.Holder,
			IsYes:    isYes,
			Shares:   q.Shares,
			Cost:     q.Cost,
		},
		Trade: t,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Sell
// ──────────────────────────────────────────────────────────────────────────────

// SellResult is the outcome of a settled sell. Payout is net of Fee.
type SellResult struct {
	Payout fp.Amount
	Fee    fp.Amount
	Quote  amm.TradeQuote
	Event  domain.SaleEvent
	Trade  *domain.Trade
}

// Sell returns shares from p to the market.
//
// The gross payout leaves the market's collateral; the fee is taken from it
// and accrues to the creator. minPayout bounds the net amount received.
func (e *Engine) Sell(m *domain.Market, p *domain.Position, isYes bool, shares, minPayout fp.Amount) (*SellResult, error) {
	if !m.IsActive() {
		return nil, domain.ErrMarketResolved
	}
	if shares.Sign() <= 0 || minPayout.Sign() < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if p.Shares(isYes).LessThan(shares) {
		return nil, domain.ErrInsufficientShares
	}

	q, err := amm.QuoteSell(m.State(), isYes, shares, m.FeeRateBps)
	if errors.Is(err, amm.ErrExceedsSupply) {
		return nil, domain.ErrInsufficientShares
	}
	if err != nil {
		return nil, err
	}
	if q.Payout.LessThan(minPayout) {
		return nil, &domain.SlippageError{Bound: "min_payout", Min: minPayout, Got: q.Payout}
	}
	gross := q.Payout.Add(q.Fee)
	if gross.GreaterThan(m.TotalCollateral) {
		return nil, domain.ErrInsufficientCollateral
	}

	if err := p.Debit(isYes, shares); err != nil {
		return nil, err
	}
	m.AddShares(isYes, shares.Neg())
	m.TotalCollateral = m.TotalCollateral.Sub(gross)
	m.PendingCreatorFees = m.PendingCreatorFees.Add(q.Fee)
	m.UpdatedAt = e.Now()
	p.UpdatedAt = m.UpdatedAt

	t := e.newTrade(m, p.Holder, domain.TradeSell, isYes)
	t.Shares, t.Amount, t.Fee = shares, q.Payout, q.Fee

	return &SellResult{
		Payout: q.Payout,
		Fee:    q.Fee,
		Quote:  q,
		Event: domain.SaleEvent{
			MarketID: m.ID,
			Seller:   p.Holder,
			IsYes:    isYes,
			Shares:   shares,
			Payout:   q.Payout,
		},
		Trade: t,
	}, nil
}
