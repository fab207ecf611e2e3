package middleware

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/evetabi/amm/internal/domain"
)

// HeaderAccount carries the caller's hex address. Authenticating that the
// caller really controls it belongs to whatever sits in front of this API.
const HeaderAccount = "X-Account"

// CtxAccount is the gin.Context key set by AccountMiddleware.
const CtxAccount = "account"

// ──────────────────────────────────────────────────────────────────────────────
// AccountMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// AccountMiddleware requires a well-formed, non-zero X-Account header and
// stores the parsed common.Address in the gin context.
func AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := ParseAccount(c.GetHeader(HeaderAccount))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   domain.ErrInvalidAccount.Error(),
				"code":    "ERR_INVALID_ACCOUNT",
			})
			return
		}
		c.Set(CtxAccount, account)
		c.Next()
	}
}

// ParseAccount parses a 0x-prefixed hex address. The zero address is rejected.
func ParseAccount(s string) (common.Address, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	a := common.HexToAddress(s)
	if a == (common.Address{}) {
		return common.Address{}, false
	}
	return a, true
}

// GetAccount extracts the caller set by AccountMiddleware.
// Returns the zero address if the middleware did not run.
func GetAccount(c *gin.Context) common.Address {
	v, _ := c.Get(CtxAccount)
	a, _ := v.(common.Address)
	return a
}
