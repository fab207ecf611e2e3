package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/domain"
)

// MemoryStore is an in-process implementation of the market store.
//
// Each market has its own mutex, so mutations of one market are serialised
// while different markets proceed in parallel. Callers always receive
// copies; fn callbacks work on copies that are committed only on success.
type MemoryStore struct {
	mu      sync.RWMutex
	markets map[uuid.UUID]*memMarket
}

type memMarket struct {
	mu        sync.Mutex
	market    domain.Market
	positions map[common.Address]domain.Position
	trades    []domain.Trade
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markets: make(map[uuid.UUID]*memMarket)}
}

func (s *MemoryStore) entry(id uuid.UUID) (*memMarket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.markets[id]
	if !ok {
		return nil, domain.ErrMarketNotFound
	}
	return e, nil
}

// Create adds a new market. Returns ErrDuplicate if the ID exists.
func (s *MemoryStore) Create(_ context.Context, m *domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.markets[m.ID]; exists {
		return fmt.Errorf("memory_store.Create: %w", ErrDuplicate)
	}
	s.markets[m.ID] = &memMarket{
		market:    *m,
		positions: make(map[common.Address]domain.Position),
	}
	return nil
}

// GetByID returns a copy of the market.
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Market, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.market
	return &m, nil
}

// List returns a page of markets, newest first, and the total count.
func (s *MemoryStore) List(_ context.Context, activeOnly bool, limit, offset int) ([]*domain.Market, int, error) {
	s.mu.RLock()
	entries := make([]*memMarket, 0, len(s.markets))
	for _, e := range s.markets {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	all := make([]*domain.Market, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		m := e.market
		e.mu.Unlock()
		if activeOnly && !m.IsActive() {
			continue
		}
		all = append(all, &m)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*domain.Market{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// GetPosition returns a copy of the holder's position, or an empty one.
func (s *MemoryStore) GetPosition(_ context.Context, marketID uuid.UUID, holder common.Address) (*domain.Position, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position(marketID, holder), nil
}

func (e *memMarket) position(marketID uuid.UUID, holder common.Address) *domain.Position {
	if p, ok := e.positions[holder]; ok {
		return &p
	}
	return domain.NewPosition(marketID, holder)
}

// ListTrades returns a page of a market's ledger, newest first, and the
// total number of trades on the market.
func (s *MemoryStore) ListTrades(_ context.Context, marketID uuid.UUID, limit, offset int) ([]*domain.Trade, int, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return nil, 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	out := []*domain.Trade{}
	for i := len(e.trades) - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		t := e.trades[i]
		out = append(out, &t)
	}
	return out, len(e.trades), nil
}

// Update applies fn to a copy of the market under its lock and commits the
// copy if fn succeeds.
func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, fn func(*domain.Market) error) (*domain.Market, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	if err := fn(&m); err != nil {
		return nil, err
	}
	e.market = m
	return &m, nil
}

// UpdatePosition applies fn to copies of the market and the holder's
// position under the market lock, committing both and the returned trade
// if fn succeeds.
func (s *MemoryStore) UpdatePosition(
	_ context.Context,
	id uuid.UUID,
	holder common.Address,
	fn func(*domain.Market, *domain.Position) (*domain.Trade, error),
) (*domain.Market, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	p := e.position(id, holder)
	trade, err := fn(&m, p)
	if err != nil {
		return nil, err
	}
	e.market = m
	e.positions[holder] = *p
	if trade != nil {
		e.trades = append(e.trades, *trade)
	}
	return &m, nil
}
