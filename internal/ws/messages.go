// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs pushed to connected clients.
package ws

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/domain"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypePurchase MsgType = "purchase"
	MsgTypeSale     MsgType = "sale"
	MsgTypeResolved MsgType = "resolved"
	MsgTypeRedeem   MsgType = "redeem"
	MsgTypePrices   MsgType = "prices"
)

// All amounts are 18-digit fixed point encoded as base-10 strings.

// PurchaseMessage is pushed after a buy commits.
type PurchaseMessage struct {
	Type      MsgType        `json:"type"`
	MarketID  uuid.UUID      `json:"market_id"`
	Buyer     common.Address `json:"buyer"`
	Outcome   domain.Outcome `json:"outcome"`
	Shares    fp.Amount      `json:"shares"`
	Cost      fp.Amount      `json:"cost"`
	Timestamp time.Time      `json:"timestamp"`
}

// SaleMessage is pushed after a sell commits. Payout is net of fee.
type SaleMessage struct {
	Type      MsgType        `json:"type"`
	MarketID  uuid.UUID      `json:"market_id"`
	Seller    common.Address `json:"seller"`
	Outcome   domain.Outcome `json:"outcome"`
	Shares    fp.Amount      `json:"shares"`
	Payout    fp.Amount      `json:"payout"`
	Timestamp time.Time      `json:"timestamp"`
}

// ResolvedMessage tells clients which side won.
type ResolvedMessage struct {
	Type       MsgType        `json:"type"`
	MarketID   uuid.UUID      `json:"market_id"`
	Winner     domain.Outcome `json:"winner"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// RedeemMessage is pushed when a holder burns winning shares.
type RedeemMessage struct {
	Type      MsgType        `json:"type"`
	MarketID  uuid.UUID      `json:"market_id"`
	Holder    common.Address `json:"holder"`
	Outcome   domain.Outcome `json:"outcome"`
	Shares    fp.Amount      `json:"shares"`
	Payout    fp.Amount      `json:"payout"`
	Timestamp time.Time      `json:"timestamp"`
}

// PricesMessage is the periodic price snapshot of one active market.
type PricesMessage struct {
	Type            MsgType   `json:"type"`
	MarketID        uuid.UUID `json:"market_id"`
	YesPrice        fp.Amount `json:"yes_price"`
	NoPrice         fp.Amount `json:"no_price"`
	YesShares       fp.Amount `json:"yes_shares"`
	NoShares        fp.Amount `json:"no_shares"`
	LiquidityParam  fp.Amount `json:"liquidity_param"`
	TotalCollateral fp.Amount `json:"total_collateral"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewPricesMessage builds the snapshot for info.
func NewPricesMessage(info domain.MarketInfo, now time.Time) PricesMessage {
	return PricesMessage{
		Type:            MsgTypePrices,
		MarketID:        info.ID,
		YesPrice:        info.YesPrice,
		NoPrice:         info.NoPrice,
		YesShares:       info.YesShares,
		NoShares:        info.NoShares,
		LiquidityParam:  info.LiquidityParam,
		TotalCollateral: info.TotalCollateral,
		Timestamp:       now,
	}
}
