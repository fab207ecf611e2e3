package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// TradeKind is the type of a ledger entry.
type TradeKind string

const (
	TradeBuy    TradeKind = "buy"
	TradeSell   TradeKind = "sell"
	TradeRedeem TradeKind = "redeem"
)

// ──────────────────────────────────────────────────────────────────────────────
// Trade
// ──────────────────────────────────────────────────────────────────────────────

// Trade is a persisted record of a settled buy, sell or redeem.
// Amount is the cost charged (buy) or the net payout (sell, redeem).
type Trade struct {
	ID        uuid.UUID      `json:"id"         db:"id"`
	MarketID  uuid.UUID      `json:"market_id"  db:"market_id"`
	Account   common.Address `json:"account"    db:"account"`
	Kind      TradeKind      `json:"kind"       db:"kind"`
	IsYes     bool           `json:"is_yes"     db:"is_yes"`
	Shares    fp.Amount      `json:"shares"     db:"shares"`
	Amount    fp.Amount      `json:"amount"     db:"amount"`
	Fee       fp.Amount      `json:"fee"        db:"fee"`
	Refund    fp.Amount      `json:"refund"     db:"refund"`
	YesPrice  fp.Amount      `json:"yes_price"  db:"yes_price"`
	NoPrice   fp.Amount      `json:"no_price"   db:"no_price"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
