package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/amm/internal/api/handler"
	"github.com/evetabi/amm/internal/api/middleware"
	"github.com/evetabi/amm/internal/config"
	"github.com/evetabi/amm/internal/service"
	"github.com/evetabi/amm/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	MarketSvc *service.MarketService
	TradeSvc  *service.TradeService
	Hub       *ws.Hub
	Cfg       *config.Config
	Logger    *slog.Logger
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestLogger(deps.Logger))
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	marketH := handler.NewMarketHandler(deps.MarketSvc)
	tradeH := handler.NewTradeHandler(deps.TradeSvc, deps.MarketSvc)

	accountMW := middleware.AccountMiddleware()
	rl := middleware.RateLimitMiddleware(deps.Cfg.RateLimit)

	api := r.Group("/api")
	api.Use(rl)
	{
		markets := api.Group("/markets")
		{
			// Public reads
			markets.GET("", marketH.ListMarkets)
			markets.GET("/:id", marketH.GetByID)
			markets.GET("/:id/prices", marketH.GetPrices)
			markets.GET("/:id/quote", marketH.GetQuote)
			markets.GET("/:id/positions/:account", marketH.GetPosition)
			markets.GET("/:id/trades", marketH.ListTrades)

			// Caller-identified writes
			markets.POST("", accountMW, marketH.CreateMarket)
			markets.POST("/:id/buy", accountMW, tradeH.Buy)
			markets.POST("/:id/sell", accountMW, tradeH.Sell)
			markets.POST("/:id/resolve", accountMW, tradeH.Resolve)
			markets.POST("/:id/redeem", accountMW, tradeH.Redeem)
			markets.POST("/:id/claim-fees", accountMW, tradeH.ClaimFees)
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware sets CORS headers. Outside production, or with no
// configured origins, every origin is allowed; otherwise only the origins in
// CORS_ALLOWED_ORIGINS.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool)
	for _, o := range AllowedOrigins(cfg) {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() || len(allowed) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Account, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AllowedOrigins splits the configured comma-separated origin list.
func AllowedOrigins(cfg *config.Config) []string {
	var out []string
	for _, o := range strings.Split(cfg.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// requestLogger logs one structured line per request.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			log.Error("request failed", append(attrs, "err", errs.String())...)
			return
		}
		log.Debug("request", attrs...)
	}
}
