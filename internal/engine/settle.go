package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/evetabi/amm/internal/domain"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Resolve
// ──────────────────────────────────────────────────────────────────────────────

// Resolve records the oracle's outcome. It can succeed at most once and
// never before the market's resolution time.
func (e *Engine) Resolve(m *domain.Market, caller common.Address, yesWins bool) (*domain.ResolvedEvent, error) {
	if caller != m.Oracle {
		return nil, domain.ErrNotOracle
	}
	if m.Resolved {
		return nil, domain.ErrMarketAlreadyResolved
	}
	now := e.Now()
	if now.Before(m.ResolutionTime) {
		return nil, domain.ErrResolutionTooEarly
	}

	m.Resolved = true
	m.YesWins = yesWins
	m.ResolvedAt = &now
	m.UpdatedAt = now

	return &domain.ResolvedEvent{MarketID: m.ID, YesWins: yesWins, ResolvedAt: now}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Redeem
// ──────────────────────────────────────────────────────────────────────────────

// RedeemResult is the outcome of a redemption. Event and Trade are nil
// when the holder had no winning shares.
type RedeemResult struct {
	Shares fp.Amount
	Payout fp.Amount
	Event  *domain.RedeemEvent
	Trade  *domain.Trade
}

// Redeem burns every winning share in p and pays one collateral unit per
// share. Losing shares are left in place and redeem for nothing; a holder
// with only losing shares gets a zero result, not an error.
func (e *Engine) Redeem(m *domain.Market, p *domain.Position) (*RedeemResult, error) {
	if !m.Resolved {
		return nil, domain.ErrMarketNotResolved
	}

	shares := p.Shares(m.YesWins)
	if shares.Sign() <= 0 {
		return &RedeemResult{}, nil
	}
	payout := shares // one unit of collateral per share, both at 18 digits
	if payout.GreaterThan(m.TotalCollateral) {
		return nil, domain.ErrInsufficientCollateral
	}

	if err := p.Debit(m.YesWins, shares); err != nil {
		return nil, err
	}
	m.AddShares(m.YesWins, shares.Neg())
	m.TotalCollateral = m.TotalCollateral.Sub(payout)
	m.UpdatedAt = e.Now()
	p.UpdatedAt = m.UpdatedAt

	t := e.newTrade(m, p.Holder, domain.TradeRedeem, m.YesWins)
	t.Shares, t.Amount = shares, payout

	return &RedeemResult{
		Shares: shares,
		Payout: payout,
		Event: &domain.RedeemEvent{
			MarketID: m.ID,
			Holder:   p.Holder,
			IsYes:    m.YesWins,
			Shares:   shares,
			Payout:   payout,
		},
		Trade: t,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ClaimCreatorFees
// ──────────────────────────────────────────────────────────────────────────────

// ClaimCreatorFees zeroes the market's accrued fees and returns the amount.
// Claiming with nothing pending returns zero.
func (e *Engine) ClaimCreatorFees(m *domain.Market, caller common.Address) (fp.Amount, error) {
	if caller != m.Creator {
		return fp.Zero, domain.ErrNotCreator
	}
	now := e.Now()
	if !m.CanClaimFees(now) {
		return fp.Zero, domain.ErrFeesLocked
	}

	amount := m.PendingCreatorFees
	if amount.IsZero() {
		return fp.Zero, nil
	}
	m.PendingCreatorFees = fp.Zero
	m.UpdatedAt = now
	return amount, nil
}
