package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into the services
// ──────────────────────────────────────────────────────────────────────────────

// Store is the persistence the services need. Implemented by
// repository.MarketRepository and repository.MemoryStore.
//
// Update and UpdatePosition must run fn with exclusive access to the market
// and commit its changes atomically, or not at all when fn fails.
type Store interface {
	Create(ctx context.Context, m *domain.Market) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Market, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*domain.Market, int, error)
	GetPosition(ctx context.Context, marketID uuid.UUID, holder common.Address) (*domain.Position, error)
	ListTrades(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*domain.Trade, int, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*domain.Market) error) (*domain.Market, error)
	UpdatePosition(ctx context.Context, id uuid.UUID, holder common.Address,
		fn func(*domain.Market, *domain.Position) (*domain.Trade, error)) (*domain.Market, error)
}

// EventPublisher receives notifications after a state change has been
// committed. Implemented by ws.Hub.
type EventPublisher interface {
	PublishPurchase(ev domain.PurchaseEvent)
	PublishSale(ev domain.SaleEvent)
	PublishResolved(ev domain.ResolvedEvent)
	PublishRedeem(ev domain.RedeemEvent)
}

type nopPublisher struct{}

func (nopPublisher) PublishPurchase(domain.PurchaseEvent) {}
func (nopPublisher) PublishSale(domain.SaleEvent)         {}
func (nopPublisher) PublishResolved(domain.ResolvedEvent) {}
func (nopPublisher) PublishRedeem(domain.RedeemEvent)     {}
