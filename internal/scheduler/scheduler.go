// Package scheduler runs the background price broadcast: every
// BroadcastConfig.PriceInterval it snapshots the active markets and pushes a
// prices message for each to WS clients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/amm/internal/config"
	"github.com/evetabi/amm/internal/domain"
	"github.com/evetabi/amm/internal/ws"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dependencies
// ──────────────────────────────────────────────────────────────────────────────

// MarketLister is the read the scheduler needs. Satisfied by
// *service.MarketService.
type MarketLister interface {
	ListMarkets(ctx context.Context, activeOnly bool, limit, offset int) ([]domain.MarketInfo, int, error)
}

// WsHub is the broadcast operation the scheduler needs from the hub.
type WsHub interface {
	BroadcastPrices(msg ws.PricesMessage)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler owns the price broadcast loop.
type Scheduler struct {
	markets MarketLister
	hub     WsHub
	cfg     config.BroadcastConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(markets MarketLister, hub WsHub, cfg config.BroadcastConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		markets: markets,
		hub:     hub,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is cancelled. A panic inside one tick is logged and
// the loop carries on with the next.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PriceInterval)
	defer ticker.Stop()

	s.logger.Info("price broadcast started", "interval", s.cfg.PriceInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("price broadcast: shutting down")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick is one iteration of Run, extracted so the deferred recover covers it.
func (s *Scheduler) tick(ctx context.Context) {
	defer s.recoverAndLog("priceBroadcast")
	s.BroadcastPrices(ctx)
}

// BroadcastPrices pushes one snapshot per active market, newest first, up to
// MaxMarkets. It returns the number of messages sent.
func (s *Scheduler) BroadcastPrices(ctx context.Context) int {
	infos, _, err := s.markets.ListMarkets(ctx, true, s.cfg.MaxMarkets, 0)
	if err != nil {
		s.logger.Warn("price broadcast: list markets failed", "err", err)
		return 0
	}
	now := s.now()
	for _, info := range infos {
		s.hub.BroadcastPrices(ws.NewPricesMessage(info, now))
	}
	return len(infos)
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
