package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evetabi/amm/internal/domain"
)

// ListTrades returns a page of a market's ledger, newest first, and the
// total number of trades on the market.
func (r *MarketRepository) ListTrades(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*domain.Trade, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM trades WHERE market_id = $1`, marketID); err != nil {
		return nil, 0, fmt.Errorf("market_repo.ListTrades count: %w", err)
	}
	trades := []*domain.Trade{}
	err := r.db.SelectContext(ctx, &trades,
		`SELECT * FROM trades WHERE market_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		marketID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("market_repo.ListTrades select: %w", err)
	}
	return trades, total, nil
}

func insertTrade(ctx context.Context, tx *sqlx.Tx, t *domain.Trade) error {
	query := `
		INSERT INTO trades
			(id, market_id, account, kind, is_yes, shares, amount, fee, refund, yes_price, no_price, created_at)
		VALUES
			(:id, :market_id, :account, :kind, :is_yes, :shares, :amount, :fee, :refund, :yes_price, :no_price, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("market_repo insert trade: %w", err)
	}
	return nil
}
