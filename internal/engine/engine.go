// Package engine applies buy, sell, resolve, redeem and fee-claim operations
// to a market's state.
//
// Every operation validates first and mutates last: when an error is
// returned the market and position are exactly as they were passed in.
// The engine does no locking. Callers must serialise mutating calls per
// market; see repository.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/amm"
	"github.com/evetabi/amm/internal/domain"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// maxCollateralDecimals bounds the collateral token precision accepted at
// creation.
const maxCollateralDecimals = 36

// Engine holds no market state, only a clock.
type Engine struct {
	now func() time.Time
}

// New returns an Engine using the wall clock.
func New() *Engine {
	return NewWithClock(time.Now)
}

// NewWithClock returns an Engine reading time from now.
func NewWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Now returns the engine's current time in UTC.
func (e *Engine) Now() time.Time { return e.now().UTC() }

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

// CreateParams describes a new market. All amounts are 18-digit fixed point.
type CreateParams struct {
	Question           string
	Creator            common.Address
	Oracle             common.Address
	ResolutionTime     time.Time
	Alpha              fp.Amount
	MinLiquidity       fp.Amount
	CollateralDecimals int32
	FeeRateBps         int64
	InitialYes         fp.Amount
	InitialNo          fp.Amount
	// Deposit is the creator's liquidity buffer. It must cover the cost of
	// the initial share state.
	Deposit fp.Amount
}

// MinimumDeposit returns the collateral buffer a market with the given
// parameters must be created with: the cost of its initial share state.
//
// Collateral afterwards moves by exactly the cost delta of every trade, and
// cost never falls below the larger side's supply, so this buffer keeps
// every winning share redeemable.
func MinimumDeposit(alpha, minLiquidity, initialYes, initialNo fp.Amount) fp.Amount {
	return amm.Cost(amm.State{
		Yes:          initialYes,
		No:           initialNo,
		Alpha:        alpha,
		MinLiquidity: minLiquidity,
	})
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidMarketParams, fmt.Sprintf(format, args...))
}

// Validate checks p against the current time.
func (p CreateParams) Validate(now time.Time) error {
	switch {
	case strings.TrimSpace(p.Question) == "":
		return invalid("question is required")
	case p.Creator == (common.Address{}):
		return invalid("creator address is required")
	case p.Oracle == (common.Address{}):
		return invalid("oracle address is required")
	case !p.ResolutionTime.After(now):
		return invalid("resolution time must be in the future")
	case p.Alpha.Sign() < 0 || !p.Alpha.LessThan(fp.Scale):
		return invalid("alpha must be in [0, 1)")
	case p.MinLiquidity.Sign() <= 0:
		return invalid("min liquidity must be positive")
	case p.FeeRateBps < 0 || p.FeeRateBps > domain.MaxFeeRateBps:
		return invalid("fee rate must be between 0 and %d bps", domain.MaxFeeRateBps)
	case p.CollateralDecimals < 0 || p.CollateralDecimals > maxCollateralDecimals:
		return invalid("collateral decimals must be between 0 and %d", maxCollateralDecimals)
	case p.InitialYes.Sign() < 0 || p.InitialNo.Sign() < 0:
		return invalid("initial shares must not be negative")
	}
	min := MinimumDeposit(p.Alpha, p.MinLiquidity, p.InitialYes, p.InitialNo)
	if p.Deposit.LessThan(min) {
		return fmt.Errorf("%w: deposit %s, required %s", domain.ErrInsufficientBuffer, p.Deposit, min)
	}
	return nil
}

// Create validates p and returns a new active market holding the deposit
// as its collateral.
func (e *Engine) Create(p CreateParams) (*domain.Market, error) {
	now := e.Now()
	if err := p.Validate(now); err != nil {
		return nil, err
	}
	return &domain.Market{
		ID:                 uuid.New(),
		Question:           strings.TrimSpace(p.Question),
		Creator:            p.Creator,
		Oracle:             p.Oracle,
		ResolutionTime:     p.ResolutionTime.UTC(),
		Alpha:              p.Alpha,
		MinLiquidity:       p.MinLiquidity,
		CollateralDecimals: p.CollateralDecimals,
		FeeRateBps:         p.FeeRateBps,
		YesShares:          p.InitialYes,
		NoShares:           p.InitialNo,
		TotalCollateral:    p.Deposit,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// newTrade builds the ledger record for a settled operation, stamped with
// the post-trade prices.
func (e *Engine) newTrade(m *domain.Market, account common.Address, kind domain.TradeKind, isYes bool) *domain.Trade {
	yes, no := amm.Prices(m.State())
	return &domain.Trade{
		ID:        uuid.New(),
		MarketID:  m.ID,
		Account:   account,
		Kind:      kind,
		IsYes:     isYes,
		YesPrice:  yes,
		NoPrice:   no,
		CreatedAt: m.UpdatedAt,
	}
}
