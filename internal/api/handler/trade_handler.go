package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/api/middleware"
	fp "github.com/evetabi/amm/internal/fixedpoint"
	"github.com/evetabi/amm/internal/service"
)

// TradeHandler serves the state-changing market endpoints. Every route
// requires the X-Account header.
type TradeHandler struct {
	tradeSvc  *service.TradeService
	marketSvc *service.MarketService
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService, marketSvc *service.MarketService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc, marketSvc: marketSvc}
}

// Buy godoc
// POST /api/markets/:id/buy [X-Account]
// Body: {"side":"YES","amount":"10","min_shares":"13"}
func (h *TradeHandler) Buy(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		Side      string `json:"side"       binding:"required"`
		Amount    string `json:"amount"     binding:"required"`
		MinShares string `json:"min_shares"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	isYes, ok := parseOutcome(c, body.Side)
	if !ok {
		return
	}
	gross, ok := parseAmount(c, "amount", body.Amount, fp.Zero)
	if !ok {
		return
	}
	minShares, ok := parseAmount(c, "min_shares", body.MinShares, fp.Zero)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	res, err := h.tradeSvc.Buy(ctx, id, middleware.GetAccount(c), isYes, gross, minShares)
	if err != nil {
		respondDomainError(c, err, "could not execute buy")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"shares":       res.Shares,
		"cost":         res.Cost,
		"fee":          res.Fee,
		"refund":       res.Refund,
		"refund_units": h.units(ctx, id, res.Refund),
		"quote":        res.Quote,
		"trade":        res.Trade,
	})
}

// Sell godoc
// POST /api/markets/:id/sell [X-Account]
// Body: {"side":"YES","shares":"5","min_payout":"2.4"}
func (h *TradeHandler) Sell(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		Side      string `json:"side"       binding:"required"`
		Shares    string `json:"shares"     binding:"required"`
		MinPayout string `json:"min_payout"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	isYes, ok := parseOutcome(c, body.Side)
	if !ok {
		return
	}
	shares, ok := parseAmount(c, "shares", body.Shares, fp.Zero)
	if !ok {
		return
	}
	minPayout, ok := parseAmount(c, "min_payout", body.MinPayout, fp.Zero)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	res, err := h.tradeSvc.Sell(ctx, id, middleware.GetAccount(c), isYes, shares, minPayout)
	if err != nil {
		respondDomainError(c, err, "could not execute sell")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"payout":       res.Payout,
		"payout_units": h.units(ctx, id, res.Payout),
		"fee":          res.Fee,
		"quote":        res.Quote,
		"trade":        res.Trade,
	})
}

// Resolve godoc
// POST /api/markets/:id/resolve [X-Account = oracle]
// Body: {"outcome":"YES"}
func (h *TradeHandler) Resolve(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		Outcome string `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	yesWins, ok := parseOutcome(c, body.Outcome)
	if !ok {
		return
	}

	ev, err := h.tradeSvc.Resolve(c.Request.Context(), id, middleware.GetAccount(c), yesWins)
	if err != nil {
		respondDomainError(c, err, "could not resolve market")
		return
	}
	respondSuccess(c, http.StatusOK, ev)
}

// Redeem godoc
// POST /api/markets/:id/redeem [X-Account]
func (h *TradeHandler) Redeem(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	res, err := h.tradeSvc.Redeem(ctx, id, middleware.GetAccount(c))
	if err != nil {
		respondDomainError(c, err, "could not redeem")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"shares":       res.Shares,
		"payout":       res.Payout,
		"payout_units": h.units(ctx, id, res.Payout),
	})
}

// ClaimFees godoc
// POST /api/markets/:id/claim-fees [X-Account = creator]
func (h *TradeHandler) ClaimFees(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	amount, err := h.tradeSvc.ClaimCreatorFees(ctx, id, middleware.GetAccount(c))
	if err != nil {
		respondDomainError(c, err, "could not claim fees")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"amount":       amount,
		"amount_units": h.units(ctx, id, amount),
	})
}

// units converts an 18-digit amount into the market's native collateral
// units for the transfer the caller has to settle. Returns nil when the
// market cannot be read.
func (h *TradeHandler) units(ctx context.Context, id uuid.UUID, a fp.Amount) *fp.Amount {
	m, err := h.marketSvc.GetMarket(ctx, id)
	if err != nil {
		return nil
	}
	u := fp.ToUnits(a, m.CollateralDecimals)
	return &u
}
