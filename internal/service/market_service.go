package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/amm"
	"github.com/evetabi/amm/internal/config"
	"github.com/evetabi/amm/internal/domain"
	"github.com/evetabi/amm/internal/engine"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// MarketService
// ──────────────────────────────────────────────────────────────────────────────

// MarketService handles market creation and every read-only query: info,
// prices, quotes, positions and the trade ledger.
type MarketService struct {
	store  Store
	engine *engine.Engine
	cfg    *config.Config
	log    *slog.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(store Store, eng *engine.Engine, cfg *config.Config, log *slog.Logger) *MarketService {
	return &MarketService{store: store, engine: eng, cfg: cfg, log: log}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateMarket
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarketInput describes a market to create. Nil parameters take the
// configured engine defaults; a zero Deposit means "exactly the minimum
// collateral buffer".
type CreateMarketInput struct {
	Question           string
	Creator            common.Address
	Oracle             common.Address
	ResolutionTime     time.Time
	Alpha              *fp.Amount
	MinLiquidity       *fp.Amount
	FeeRateBps         *int64
	CollateralDecimals *int32
	InitialYes         fp.Amount
	InitialNo          fp.Amount
	Deposit            fp.Amount
}

func (s *MarketService) params(in CreateMarketInput) engine.CreateParams {
	p := engine.CreateParams{
		Question:           in.Question,
		Creator:            in.Creator,
		Oracle:             in.Oracle,
		ResolutionTime:     in.ResolutionTime,
		Alpha:              fp.FromDecimal(s.cfg.Engine.DefaultAlpha),
		MinLiquidity:       fp.FromDecimal(s.cfg.Engine.DefaultMinLiquidity),
		FeeRateBps:         int64(s.cfg.Engine.FeeRateBps),
		CollateralDecimals: int32(s.cfg.Engine.CollateralDecimals),
		InitialYes:         in.InitialYes,
		InitialNo:          in.InitialNo,
		Deposit:            in.Deposit,
	}
	if in.Alpha != nil {
		p.Alpha = *in.Alpha
	}
	if in.MinLiquidity != nil {
		p.MinLiquidity = *in.MinLiquidity
	}
	if in.FeeRateBps != nil {
		p.FeeRateBps = *in.FeeRateBps
	}
	if in.CollateralDecimals != nil {
		p.CollateralDecimals = *in.CollateralDecimals
	}
	if p.Deposit.IsZero() {
		p.Deposit = engine.MinimumDeposit(p.Alpha, p.MinLiquidity, p.InitialYes, p.InitialNo)
	}
	return p
}

// CreateMarket validates the input, builds the market and persists it.
func (s *MarketService) CreateMarket(ctx context.Context, in CreateMarketInput) (*domain.Market, error) {
	m, err := s.engine.Create(s.params(in))
	if err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: %w", err)
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: db: %w", err)
	}

	s.log.Info("market created",
		"market", m.ID,
		"creator", m.Creator.Hex(),
		"oracle", m.Oracle.Hex(),
		"deposit", m.TotalCollateral.String(),
	)
	return m, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// GetMarket returns the stored market.
func (s *MarketService) GetMarket(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetMarket: %w", err)
	}
	return m, nil
}

// GetInfo returns the market with live prices and liquidity.
func (s *MarketService) GetInfo(ctx context.Context, id uuid.UUID) (*domain.MarketInfo, error) {
	m, err := s.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	info := m.Info()
	return &info, nil
}

// ListMarkets returns a page of market infos, newest first.
func (s *MarketService) ListMarkets(ctx context.Context, activeOnly bool, limit, offset int) ([]domain.MarketInfo, int, error) {
	markets, total, err := s.store.List(ctx, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("market_service.ListMarkets: %w", err)
	}
	infos := make([]domain.MarketInfo, 0, len(markets))
	for _, m := range markets {
		infos = append(infos, m.Info())
	}
	return infos, total, nil
}

// GetPrices returns the current YES and NO prices.
func (s *MarketService) GetPrices(ctx context.Context, id uuid.UUID) (yes, no fp.Amount, err error) {
	m, err := s.GetMarket(ctx, id)
	if err != nil {
		return fp.Zero, fp.Zero, err
	}
	yes, no = amm.Prices(m.State())
	return yes, no, nil
}

// QuoteBuy previews spending gross collateral on one side.
func (s *MarketService) QuoteBuy(ctx context.Context, id uuid.UUID, isYes bool, gross fp.Amount) (*amm.TradeQuote, error) {
	m, err := s.activeMarket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("market_service.QuoteBuy: %w", err)
	}
	if gross.Sign() <= 0 {
		return nil, fmt.Errorf("market_service.QuoteBuy: %w", domain.ErrInvalidAmount)
	}
	q := amm.QuoteBuy(m.State(), isYes, gross, m.FeeRateBps)
	return &q, nil
}

// QuoteSell previews selling shares back to the market.
func (s *MarketService) QuoteSell(ctx context.Context, id uuid.UUID, isYes bool, shares fp.Amount) (*amm.TradeQuote, error) {
	m, err := s.activeMarket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("market_service.QuoteSell: %w", err)
	}
	if shares.Sign() <= 0 {
		return nil, fmt.Errorf("market_service.QuoteSell: %w", domain.ErrInvalidAmount)
	}
	q, err := amm.QuoteSell(m.State(), isYes, shares, m.FeeRateBps)
	if err != nil {
		return nil, fmt.Errorf("market_service.QuoteSell: %w", domain.ErrInsufficientShares)
	}
	return &q, nil
}

func (s *MarketService) activeMarket(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, domain.ErrMarketResolved
	}
	return m, nil
}

// GetPosition returns the holder's shares in a market.
func (s *MarketService) GetPosition(ctx context.Context, id uuid.UUID, holder common.Address) (*domain.Position, error) {
	if _, err := s.GetMarket(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.store.GetPosition(ctx, id, holder)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetPosition: %w", err)
	}
	return p, nil
}

// ListTrades returns a page of the market's ledger, newest first, and the
// market's total trade count.
func (s *MarketService) ListTrades(ctx context.Context, id uuid.UUID, limit, offset int) ([]*domain.Trade, int, error) {
	if _, err := s.GetMarket(ctx, id); err != nil {
		return nil, 0, err
	}
	trades, total, err := s.store.ListTrades(ctx, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("market_service.ListTrades: %w", err)
	}
	return trades, total, nil
}
