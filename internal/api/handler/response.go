package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/domain"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Domain error mapping
// ──────────────────────────────────────────────────────────────────────────────

// errorCodes maps each domain sentinel to its status and code. Checked in
// order, so wrapped errors resolve to the first sentinel in their chain.
var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrMarketNotFound, http.StatusNotFound, "ERR_MARKET_NOT_FOUND"},
	{domain.ErrMarketResolved, http.StatusConflict, "ERR_MARKET_RESOLVED"},
	{domain.ErrMarketNotResolved, http.StatusConflict, "ERR_MARKET_NOT_RESOLVED"},
	{domain.ErrMarketAlreadyResolved, http.StatusConflict, "ERR_ALREADY_RESOLVED"},
	{domain.ErrResolutionTooEarly, http.StatusConflict, "ERR_RESOLUTION_TOO_EARLY"},
	{domain.ErrFeesLocked, http.StatusConflict, "ERR_FEES_LOCKED"},
	{domain.ErrInsufficientCollateral, http.StatusConflict, "ERR_INSUFFICIENT_COLLATERAL"},
	{domain.ErrNotOracle, http.StatusForbidden, "ERR_NOT_ORACLE"},
	{domain.ErrNotCreator, http.StatusForbidden, "ERR_NOT_CREATOR"},
	{domain.ErrInvalidMarketParams, http.StatusBadRequest, "ERR_INVALID_PARAMS"},
	{domain.ErrInsufficientBuffer, http.StatusBadRequest, "ERR_INSUFFICIENT_BUFFER"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "ERR_INVALID_AMOUNT"},
	{domain.ErrZeroShares, http.StatusBadRequest, "ERR_ZERO_SHARES"},
	{domain.ErrInsufficientShares, http.StatusBadRequest, "ERR_INSUFFICIENT_SHARES"},
	{domain.ErrInvalidOutcome, http.StatusBadRequest, "ERR_INVALID_OUTCOME"},
	{domain.ErrInvalidAccount, http.StatusBadRequest, "ERR_INVALID_ACCOUNT"},
}

// respondDomainError translates err into the error envelope. Slippage
// violations carry the bound and the computed value; anything the domain
// does not name becomes a 500 with the generic fallback message.
func respondDomainError(c *gin.Context, err error, fallback string) {
	var se *domain.SlippageError
	if errors.As(err, &se) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   se.Error(),
			"code":    "ERR_SLIPPAGE",
			"details": gin.H{
				"bound": se.Bound,
				"min":   se.Min,
				"got":   se.Got,
			},
		})
		return
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			respondError(c, ec.status, ec.code, err.Error())
			return
		}
	}
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", fallback)
}

// ── request helpers ──────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	// Keep (page-1)*limit within an int32 offset.
	if maxPage := math.MaxInt32 / limit; page > maxPage {
		page = maxPage
	}
	return
}

func parseMarketID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return uuid.Nil, false
	}
	return id, true
}

// parseAmount reads a decimal string such as "10.5" into fixed point.
// An empty string yields def. Negative values are rejected.
func parseAmount(c *gin.Context, field, s string, def fp.Amount) (fp.Amount, bool) {
	if s == "" {
		return def, true
	}
	a, err := fp.ParseDecimal(s)
	if err != nil || a.Sign() < 0 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", field+" must be a non-negative decimal string")
		return fp.Zero, false
	}
	return a, true
}

func parseOutcome(c *gin.Context, s string) (bool, bool) {
	o, err := domain.ParseOutcome(s)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_OUTCOME", err.Error())
		return false, false
	}
	return o.IsYes(), true
}
