package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evetabi/amm/internal/config"
	"github.com/evetabi/amm/internal/domain"
	fp "github.com/evetabi/amm/internal/fixedpoint"
	"github.com/evetabi/amm/internal/ws"
)

type fakeLister struct {
	infos []domain.MarketInfo
	err   error
	panic bool
	limit int
}

func (f *fakeLister) ListMarkets(_ context.Context, activeOnly bool, limit, _ int) ([]domain.MarketInfo, int, error) {
	if f.panic {
		panic("boom")
	}
	if !activeOnly {
		return nil, 0, errors.New("scheduler must list active markets only")
	}
	f.limit = limit
	return f.infos, len(f.infos), f.err
}

type fakeHub struct {
	mu   sync.Mutex
	msgs []ws.PricesMessage
}

func (h *fakeHub) BroadcastPrices(msg ws.PricesMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *fakeHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBroadcastPrices(t *testing.T) {
	infos := []domain.MarketInfo{
		{ID: uuid.New(), YesPrice: fp.Scale.QuoInt(2), NoPrice: fp.Scale.QuoInt(2)},
		{ID: uuid.New(), YesPrice: fp.Scale.QuoInt(4), NoPrice: fp.Scale.QuoInt(4).MulInt(3)},
	}
	lister := &fakeLister{infos: infos}
	hub := &fakeHub{}
	s := NewScheduler(lister, hub, config.BroadcastConfig{PriceInterval: time.Second, MaxMarkets: 7}, discard())

	if n := s.BroadcastPrices(context.Background()); n != 2 {
		t.Fatalf("sent %d messages, want 2", n)
	}
	if lister.limit != 7 {
		t.Errorf("limit = %d, want MaxMarkets 7", lister.limit)
	}
	for i, msg := range hub.msgs {
		if msg.Type != ws.MsgTypePrices {
			t.Errorf("msg %d type = %q", i, msg.Type)
		}
		if msg.MarketID != infos[i].ID || !msg.YesPrice.Equal(infos[i].YesPrice) {
			t.Errorf("msg %d does not match market %s", i, infos[i].ID)
		}
	}
}

func TestBroadcastPrices_ListError(t *testing.T) {
	hub := &fakeHub{}
	s := NewScheduler(&fakeLister{err: errors.New("db down")}, hub,
		config.BroadcastConfig{PriceInterval: time.Second, MaxMarkets: 10}, discard())
	if n := s.BroadcastPrices(context.Background()); n != 0 {
		t.Fatalf("sent %d messages on error", n)
	}
}

func TestTick_RecoversPanic(t *testing.T) {
	s := NewScheduler(&fakeLister{panic: true}, &fakeHub{},
		config.BroadcastConfig{PriceInterval: time.Second, MaxMarkets: 10}, discard())
	s.tick(context.Background()) // must not propagate
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	hub := &fakeHub{}
	lister := &fakeLister{infos: []domain.MarketInfo{{ID: uuid.New()}}}
	s := NewScheduler(lister, hub, config.BroadcastConfig{PriceInterval: 5 * time.Millisecond, MaxMarkets: 10}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for hub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if hub.count() < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", hub.count())
	}
}
