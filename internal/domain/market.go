// Package domain defines the core business entities and types for the
// LS-LMSR YES/NO prediction market engine.
package domain

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/amm"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Outcome is one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// ParseOutcome accepts "YES"/"NO" in any case.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", ErrInvalidOutcome
	}
	return o, nil
}

// IsValid returns true if the outcome is YES or NO.
func (o Outcome) IsValid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// IsYes reports whether o is the YES side.
func (o Outcome) IsYes() bool { return o == OutcomeYes }

// OutcomeOf maps a side flag to its Outcome.
func OutcomeOf(isYes bool) Outcome {
	if isYes {
		return OutcomeYes
	}
	return OutcomeNo
}

// MaxFeeRateBps caps the trading fee at 10 %.
const MaxFeeRateBps = 1000

// ──────────────────────────────────────────────────────────────────────────────
// Market
// ──────────────────────────────────────────────────────────────────────────────

// Market is the unit of state: one YES/NO question and its share supply.
//
// Share counts and collateral are 18-digit fixed point. Alpha, MinLiquidity,
// CollateralDecimals and FeeRateBps are fixed at creation.
type Market struct {
	ID                 uuid.UUID      `json:"id"                   db:"id"`
	Question           string         `json:"question"             db:"question"`
	Creator            common.Address `json:"creator"              db:"creator"`
	Oracle             common.Address `json:"oracle"               db:"oracle"`
	ResolutionTime     time.Time      `json:"resolution_time"      db:"resolution_time"`
	Alpha              fp.Amount      `json:"alpha"                db:"alpha"`
	MinLiquidity       fp.Amount      `json:"min_liquidity"        db:"min_liquidity"`
	CollateralDecimals int32          `json:"collateral_decimals"  db:"collateral_decimals"`
	FeeRateBps         int64          `json:"fee_rate_bps"         db:"fee_rate_bps"`
	YesShares          fp.Amount      `json:"yes_shares"           db:"yes_shares"`
	NoShares           fp.Amount      `json:"no_shares"            db:"no_shares"`
	TotalCollateral    fp.Amount      `json:"total_collateral"     db:"total_collateral"`
	PendingCreatorFees fp.Amount      `json:"pending_creator_fees" db:"pending_creator_fees"`
	Resolved           bool           `json:"resolved"             db:"resolved"`
	YesWins            bool           `json:"yes_wins"             db:"yes_wins"`
	ResolvedAt         *time.Time     `json:"resolved_at"          db:"resolved_at"`
	CreatedAt          time.Time      `json:"created_at"           db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"           db:"updated_at"`
}

// IsActive returns true while the market accepts trades.
func (m *Market) IsActive() bool {
	return !m.Resolved
}

// IsResolved returns true once the oracle has reported an outcome.
func (m *Market) IsResolved() bool {
	return m.Resolved
}

// CanClaimFees reports whether the creator may withdraw accrued fees:
// after resolution or once the resolution time has passed, whichever is first.
func (m *Market) CanClaimFees(now time.Time) bool {
	return m.Resolved || !now.Before(m.ResolutionTime)
}

// State returns the pricing view of the market.
func (m *Market) State() amm.State {
	return amm.State{
		Yes:          m.YesShares,
		No:           m.NoShares,
		Alpha:        m.Alpha,
		MinLiquidity: m.MinLiquidity,
	}
}

// Shares returns the outstanding supply on one side.
func (m *Market) Shares(isYes bool) fp.Amount {
	if isYes {
		return m.YesShares
	}
	return m.NoShares
}

// AddShares adds delta (possibly negative) to one side's supply.
func (m *Market) AddShares(isYes bool, delta fp.Amount) {
	if isYes {
		m.YesShares = m.YesShares.Add(delta)
	} else {
		m.NoShares = m.NoShares.Add(delta)
	}
}

// Winner returns the winning outcome, or "" while unresolved.
func (m *Market) Winner() Outcome {
	if !m.Resolved {
		return ""
	}
	return OutcomeOf(m.YesWins)
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketInfo: read model
// ──────────────────────────────────────────────────────────────────────────────

// MarketInfo is a derived, read-only view of a Market including live prices.
type MarketInfo struct {
	ID                 uuid.UUID      `json:"id"`
	Question           string         `json:"question"`
	ResolutionTime     time.Time      `json:"resolution_time"`
	Oracle             common.Address `json:"oracle"`
	Creator            common.Address `json:"creator"`
	YesPrice           fp.Amount      `json:"yes_price"`
	NoPrice            fp.Amount      `json:"no_price"`
	YesShares          fp.Amount      `json:"yes_shares"`
	NoShares           fp.Amount      `json:"no_shares"`
	TotalCollateral    fp.Amount      `json:"total_collateral"`
	LiquidityParam     fp.Amount      `json:"liquidity_param"`
	PendingCreatorFees fp.Amount      `json:"pending_creator_fees"`
	Alpha              fp.Amount      `json:"alpha"`
	MinLiquidity       fp.Amount      `json:"min_liquidity"`
	FeeRateBps         int64          `json:"fee_rate_bps"`
	CollateralDecimals int32          `json:"collateral_decimals"`
	Resolved           bool           `json:"resolved"`
	YesWins            bool           `json:"yes_wins"`
}

// Info builds a MarketInfo from the current share state.
func (m *Market) Info() MarketInfo {
	s := m.State()
	yes, no := amm.Prices(s)
	return MarketInfo{
		ID:                 m.ID,
		Question:           m.Question,
		ResolutionTime:     m.ResolutionTime,
		Oracle:             m.Oracle,
		Creator:            m.Creator,
		YesPrice:           yes,
		NoPrice:            no,
		YesShares:          m.YesShares,
		NoShares:           m.NoShares,
		TotalCollateral:    m.TotalCollateral,
		LiquidityParam:     amm.LiquidityParameter(s),
		PendingCreatorFees: m.PendingCreatorFees,
		Alpha:              m.Alpha,
		MinLiquidity:       m.MinLiquidity,
		FeeRateBps:         m.FeeRateBps,
		CollateralDecimals: m.CollateralDecimals,
		Resolved:           m.Resolved,
		YesWins:            m.YesWins,
	}
}
