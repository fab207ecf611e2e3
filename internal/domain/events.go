package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// PurchaseEvent is emitted after a successful buy.
type PurchaseEvent struct {
	MarketID uuid.UUID      `json:"market_id"`
	Buyer    common.Address `json:"buyer"`
	IsYes    bool           `json:"is_yes"`
	Shares   fp.Amount      `json:"shares"`
	Cost     fp.Amount      `json:"cost"`
}

// SaleEvent is emitted after a successful sell. Payout is net of fee.
type SaleEvent struct {
	MarketID uuid.UUID      `json:"market_id"`
	Seller   common.Address `json:"seller"`
	IsYes    bool           `json:"is_yes"`
	Shares   fp.Amount      `json:"shares"`
	Payout   fp.Amount      `json:"payout"`
}

// ResolvedEvent is emitted once when the oracle resolves a market.
type ResolvedEvent struct {
	MarketID   uuid.UUID `json:"market_id"`
	YesWins    bool      `json:"yes_wins"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// RedeemEvent is emitted when a holder burns winning shares.
type RedeemEvent struct {
	MarketID uuid.UUID      `json:"market_id"`
	Holder   common.Address `json:"holder"`
	IsYes    bool           `json:"is_yes"`
	Shares   fp.Amount      `json:"shares"`
	Payout   fp.Amount      `json:"payout"`
}
