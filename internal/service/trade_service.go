package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/domain"
	"github.com/evetabi/amm/internal/engine"
	fp "github.com/evetabi/amm/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// TradeService
// ──────────────────────────────────────────────────────────────────────────────

// TradeService runs every state-changing market operation. Each call is one
// store transaction around one engine call; events are published only after
// the transaction commits.
type TradeService struct {
	store     Store
	engine    *engine.Engine
	publisher EventPublisher
	log       *slog.Logger
}

// NewTradeService creates a TradeService with no event publisher.
func NewTradeService(store Store, eng *engine.Engine, log *slog.Logger) *TradeService {
	return &TradeService{store: store, engine: eng, publisher: nopPublisher{}, log: log}
}

// SetPublisher injects the WS hub after it is built.
func (s *TradeService) SetPublisher(p EventPublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.publisher = p
}

// ──────────────────────────────────────────────────────────────────────────────
// Buy / Sell
// ──────────────────────────────────────────────────────────────────────────────

// Buy spends gross collateral on one side for buyer.
func (s *TradeService) Buy(ctx context.Context, id uuid.UUID, buyer common.Address, isYes bool, gross, minShares fp.Amount) (*engine.BuyResult, error) {
	var res *engine.BuyResult
	_, err := s.store.UpdatePosition(ctx, id, buyer, func(m *domain.Market, p *domain.Position) (*domain.Trade, error) {
		r, err := s.engine.Buy(m, p, isYes, gross, minShares)
		if err != nil {
			return nil, err
		}
		res = r
		return r.Trade, nil
	})
	if err != nil {
		return nil, fmt.Errorf("trade_service.Buy: %w", err)
	}

	s.log.Info("buy",
		"market", id,
		"account", buyer.Hex(),
		"outcome", domain.OutcomeOf(isYes),
		"shares", res.Shares.String(),
		"cost", res.Cost.String(),
		"fee", res.Fee.String(),
	)
	s.publisher.PublishPurchase(res.Event)
	return res, nil
}

// Sell returns shares from seller to the market.
func (s *TradeService) Sell(ctx context.Context, id uuid.UUID, seller common.Address, isYes bool, shares, minPayout fp.Amount) (*engine.SellResult, error) {
	var res *engine.SellResult
	_, err := s.store.UpdatePosition(ctx, id, seller, func(m *domain.Market, p *domain.Position) (*domain.Trade, error) {
		r, err := s.engine.Sell(m, p, isYes, shares, minPayout)
		if err != nil {
			return nil, err
		}
		res = r
		return r.Trade, nil
	})
	if err != nil {
		return nil, fmt.Errorf("trade_service.Sell: %w", err)
	}

	s.log.Info("sell",
		"market", id,
		"account", seller.Hex(),
		"outcome", domain.OutcomeOf(isYes),
		"shares", shares.String(),
		"payout", res.Payout.String(),
		"fee", res.Fee.String(),
	)
	s.publisher.PublishSale(res.Event)
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolve / Redeem / Claim
// ──────────────────────────────────────────────────────────────────────────────

// Resolve records the oracle's outcome.
func (s *TradeService) Resolve(ctx context.Context, id uuid.UUID, caller common.Address, yesWins bool) (*domain.ResolvedEvent, error) {
	var ev *domain.ResolvedEvent
	_, err := s.store.Update(ctx, id, func(m *domain.Market) error {
		e, err := s.engine.Resolve(m, caller, yesWins)
		if err != nil {
			return err
		}
		ev = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trade_service.Resolve: %w", err)
	}

	s.log.Info("market resolved", "market", id, "winner", domain.OutcomeOf(yesWins))
	s.publisher.PublishResolved(*ev)
	return ev, nil
}

// Redeem pays out holder's winning shares.
func (s *TradeService) Redeem(ctx context.Context, id uuid.UUID, holder common.Address) (*engine.RedeemResult, error) {
	var res *engine.RedeemResult
	_, err := s.store.UpdatePosition(ctx, id, holder, func(m *domain.Market, p *domain.Position) (*domain.Trade, error) {
		r, err := s.engine.Redeem(m, p)
		if err != nil {
			return nil, err
		}
		res = r
		return r.Trade, nil
	})
	if err != nil {
		return nil, fmt.Errorf("trade_service.Redeem: %w", err)
	}

	if res.Event != nil {
		s.log.Info("redeem", "market", id, "account", holder.Hex(), "payout", res.Payout.String())
		s.publisher.PublishRedeem(*res.Event)
	}
	return res, nil
}

// ClaimCreatorFees withdraws the creator's accrued fees.
func (s *TradeService) ClaimCreatorFees(ctx context.Context, id uuid.UUID, caller common.Address) (fp.Amount, error) {
	amount := fp.Zero
	_, err := s.store.Update(ctx, id, func(m *domain.Market) error {
		a, err := s.engine.ClaimCreatorFees(m, caller)
		if err != nil {
			return err
		}
		amount = a
		return nil
	})
	if err != nil {
		return fp.Zero, fmt.Errorf("trade_service.ClaimCreatorFees: %w", err)
	}

	if !amount.IsZero() {
		s.log.Info("creator fees claimed", "market", id, "account", caller.Hex(), "amount", amount.String())
	}
	return amount, nil
}
