package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// Position holds one account's outcome shares in a market.
type Position struct {
	MarketID  uuid.UUID      `json:"market_id"  db:"market_id"`
	Holder    common.Address `json:"holder"     db:"holder"`
	YesShares fp.Amount      `json:"yes_shares" db:"yes_shares"`
	NoShares  fp.Amount      `json:"no_shares"  db:"no_shares"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// NewPosition returns an empty position.
func NewPosition(marketID uuid.UUID, holder common.Address) *Position {
	return &Position{MarketID: marketID, Holder: holder}
}

// Shares returns the holder's balance on one side.
func (p *Position) Shares(isYes bool) fp.Amount {
	if isYes {
		return p.YesShares
	}
	return p.NoShares
}

// Credit adds n shares to one side.
func (p *Position) Credit(isYes bool, n fp.Amount) {
	if isYes {
		p.YesShares = p.YesShares.Add(n)
	} else {
		p.NoShares = p.NoShares.Add(n)
	}
}

// Debit removes n shares from one side. Returns ErrInsufficientShares,
// leaving p untouched, if the balance is too small.
func (p *Position) Debit(isYes bool, n fp.Amount) error {
	if p.Shares(isYes).LessThan(n) {
		return ErrInsufficientShares
	}
	p.Credit(isYes, n.Neg())
	return nil
}

// IsEmpty reports whether the holder has no shares on either side.
func (p *Position) IsEmpty() bool {
	return p.YesShares.IsZero() && p.NoShares.IsZero()
}
