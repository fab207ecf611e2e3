package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evetabi/amm/internal/domain"
)

// GetPosition returns the holder's position in a market. A holder who has
// never traded gets an empty position, not an error.
func (r *MarketRepository) GetPosition(ctx context.Context, marketID uuid.UUID, holder common.Address) (*domain.Position, error) {
	var p domain.Position
	err := r.db.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE market_id = $1 AND holder = $2`, marketID, holder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewPosition(marketID, holder), nil
		}
		return nil, fmt.Errorf("market_repo.GetPosition: %w", err)
	}
	return &p, nil
}

func lockPosition(ctx context.Context, tx *sqlx.Tx, marketID uuid.UUID, holder common.Address) (*domain.Position, error) {
	var p domain.Position
	err := tx.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE market_id = $1 AND holder = $2 FOR UPDATE`, marketID, holder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewPosition(marketID, holder), nil
		}
		return nil, fmt.Errorf("market_repo lock position: %w", err)
	}
	return &p, nil
}

func savePosition(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	query := `
		INSERT INTO positions (market_id, holder, yes_shares, no_shares, updated_at)
		VALUES (:market_id, :holder, :yes_shares, :no_shares, :updated_at)
		ON CONFLICT (market_id, holder) DO UPDATE
		SET yes_shares = EXCLUDED.yes_shares,
		    no_shares  = EXCLUDED.no_shares,
		    updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("market_repo save position: %w", err)
	}
	return nil
}
