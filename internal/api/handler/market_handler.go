package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/amm/internal/api/middleware"
	fp "github.com/evetabi/amm/internal/fixedpoint"
	"github.com/evetabi/amm/internal/service"
)

// MarketHandler serves market creation and query endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// createMarketRequest carries amounts as decimal strings in whole collateral
// units ("100", "0.03"). Omitted parameters take the server defaults.
type createMarketRequest struct {
	Question           string `json:"question"        binding:"required"`
	Oracle             string `json:"oracle"          binding:"required"`
	ResolutionTime     string `json:"resolution_time" binding:"required"`
	Alpha              string `json:"alpha"`
	MinLiquidity       string `json:"min_liquidity"`
	FeeRateBps         *int64 `json:"fee_rate_bps"`
	CollateralDecimals *int32 `json:"collateral_decimals"`
	InitialYes         string `json:"initial_yes"`
	InitialNo          string `json:"initial_no"`
	Deposit            string `json:"deposit"`
}

// CreateMarket godoc
// POST /api/markets [X-Account = creator]
// Body: {"question":"…","oracle":"0x…","resolution_time":"2026-12-31T00:00:00Z","initial_yes":"100","initial_no":"100"}
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var body createMarketRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	oracle, ok := middleware.ParseAccount(body.Oracle)
	if !ok {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ORACLE", "oracle must be a non-zero hex address")
		return
	}
	resolution, err := time.Parse(time.RFC3339, body.ResolutionTime)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TIME", "resolution_time must be RFC 3339")
		return
	}

	in := service.CreateMarketInput{
		Question:           body.Question,
		Creator:            middleware.GetAccount(c),
		Oracle:             oracle,
		ResolutionTime:     resolution,
		FeeRateBps:         body.FeeRateBps,
		CollateralDecimals: body.CollateralDecimals,
	}
	if body.Alpha != "" {
		a, ok := parseAmount(c, "alpha", body.Alpha, fp.Zero)
		if !ok {
			return
		}
		in.Alpha = &a
	}
	if body.MinLiquidity != "" {
		l, ok := parseAmount(c, "min_liquidity", body.MinLiquidity, fp.Zero)
		if !ok {
			return
		}
		in.MinLiquidity = &l
	}
	if in.InitialYes, ok = parseAmount(c, "initial_yes", body.InitialYes, fp.Zero); !ok {
		return
	}
	if in.InitialNo, ok = parseAmount(c, "initial_no", body.InitialNo, fp.Zero); !ok {
		return
	}
	if in.Deposit, ok = parseAmount(c, "deposit", body.Deposit, fp.Zero); !ok {
		return
	}

	m, err := h.marketSvc.CreateMarket(c.Request.Context(), in)
	if err != nil {
		respondDomainError(c, err, "could not create market")
		return
	}
	respondSuccess(c, http.StatusCreated, m.Info())
}

// ListMarkets godoc
// GET /api/markets?active=true&page=1&limit=20
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "true"))
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	infos, total, err := h.marketSvc.ListMarkets(c.Request.Context(), activeOnly, limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not list markets")
		return
	}
	respondList(c, infos, total, page, limit)
}

// GetByID godoc
// GET /api/markets/:id
func (h *MarketHandler) GetByID(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	info, err := h.marketSvc.GetInfo(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch market")
		return
	}
	respondSuccess(c, http.StatusOK, info)
}

// GetPrices godoc
// GET /api/markets/:id/prices
func (h *MarketHandler) GetPrices(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	yes, no, err := h.marketSvc.GetPrices(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "could not fetch prices")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"yes_price": yes,
		"no_price":  no,
		"yes":       yes.Decimal().String(),
		"no":        no.Decimal().String(),
		"spread":    yes.Add(no).Sub(fp.Scale).Decimal().String(),
	})
}

// GetQuote godoc
// GET /api/markets/:id/quote?side=YES&action=buy&amount=10
//
// For buys amount is collateral to spend; for sells it is shares to sell.
func (h *MarketHandler) GetQuote(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	isYes, ok := parseOutcome(c, c.Query("side"))
	if !ok {
		return
	}
	amount, ok := parseAmount(c, "amount", c.Query("amount"), fp.Zero)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	switch c.DefaultQuery("action", "buy") {
	case "buy":
		q, err := h.marketSvc.QuoteBuy(ctx, id, isYes, amount)
		if err != nil {
			respondDomainError(c, err, "could not quote buy")
			return
		}
		respondSuccess(c, http.StatusOK, q)
	case "sell":
		q, err := h.marketSvc.QuoteSell(ctx, id, isYes, amount)
		if err != nil {
			respondDomainError(c, err, "could not quote sell")
			return
		}
		respondSuccess(c, http.StatusOK, q)
	default:
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "action must be buy or sell")
	}
}

// GetPosition godoc
// GET /api/markets/:id/positions/:account
func (h *MarketHandler) GetPosition(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	holder, ok := middleware.ParseAccount(c.Param("account"))
	if !ok {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ACCOUNT", "invalid account address")
		return
	}
	p, err := h.marketSvc.GetPosition(c.Request.Context(), id, holder)
	if err != nil {
		respondDomainError(c, err, "could not fetch position")
		return
	}
	respondSuccess(c, http.StatusOK, p)
}

// ListTrades godoc
// GET /api/markets/:id/trades?page=1&limit=20
func (h *MarketHandler) ListTrades(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	trades, total, err := h.marketSvc.ListTrades(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondDomainError(c, err, "could not list trades")
		return
	}
	respondList(c, trades, total, page, limit)
}
