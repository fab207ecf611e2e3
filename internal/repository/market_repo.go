package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/evetabi/amm/internal/domain"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// ErrDuplicate is returned when an insert collides with an existing key.
var ErrDuplicate = errors.New("duplicate key")

// MarketRepository persists markets, positions and the trade ledger in
// PostgreSQL.
//
// Every mutation of a market runs in one transaction holding the market row
// FOR UPDATE, so concurrent calls against the same market are applied one
// at a time in a total order.
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// Create inserts a new market row.
func (r *MarketRepository) Create(ctx context.Context, m *domain.Market) error {
	query := `
		INSERT INTO markets
			(id, question, creator, oracle, resolution_time, alpha, min_liquidity,
			 collateral_decimals, fee_rate_bps, yes_shares, no_shares, total_collateral,
			 pending_creator_fees, resolved, yes_wins, resolved_at, created_at, updated_at)
		VALUES
			(:id, :question, :creator, :oracle, :resolution_time, :alpha, :min_liquidity,
			 :collateral_decimals, :fee_rate_bps, :yes_shares, :no_shares, :total_collateral,
			 :pending_creator_fees, :resolved, :yes_wins, :resolved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("market_repo.Create: %w", ErrDuplicate)
		}
		return fmt.Errorf("market_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a market by its primary key.
func (r *MarketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	var m domain.Market
	err := r.db.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByID: %w", err)
	}
	return &m, nil
}

// List returns a page of markets, newest first, and the total count.
// activeOnly restricts the result to unresolved markets.
func (r *MarketRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*domain.Market, int, error) {
	where := ""
	if activeOnly {
		where = "WHERE resolved = false"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM markets `+where); err != nil {
		return nil, 0, fmt.Errorf("market_repo.List count: %w", err)
	}
	markets := []*domain.Market{}
	if err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM markets `+where+` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset); err != nil {
		return nil, 0, fmt.Errorf("market_repo.List select: %w", err)
	}
	return markets, total, nil
}

// Update locks the market row, applies fn and writes the result back.
// If fn returns an error nothing is written and the error is returned as is.
func (r *MarketRepository) Update(ctx context.Context, id uuid.UUID, fn func(*domain.Market) error) (updated *domain.Market, err error) {
	err = r.inTx(ctx, func(tx *sqlx.Tx) error {
		m, lockErr := lockMarket(ctx, tx, id)
		if lockErr != nil {
			return lockErr
		}
		if fnErr := fn(m); fnErr != nil {
			return fnErr
		}
		if saveErr := saveMarket(ctx, tx, m); saveErr != nil {
			return saveErr
		}
		updated = m
		return nil
	})
	return updated, err
}

// UpdatePosition locks the market row and the holder's position, applies fn,
// and writes back both together with the trade fn returns (if any).
func (r *MarketRepository) UpdatePosition(
	ctx context.Context,
	id uuid.UUID,
	holder common.Address,
	fn func(*domain.Market, *domain.Position) (*domain.Trade, error),
) (updated *domain.Market, err error) {
	err = r.inTx(ctx, func(tx *sqlx.Tx) error {
		m, lockErr := lockMarket(ctx, tx, id)
		if lockErr != nil {
			return lockErr
		}
		p, posErr := lockPosition(ctx, tx, id, holder)
		if posErr != nil {
			return posErr
		}
		trade, fnErr := fn(m, p)
		if fnErr != nil {
			return fnErr
		}
		if saveErr := saveMarket(ctx, tx, m); saveErr != nil {
			return saveErr
		}
		if saveErr := savePosition(ctx, tx, p); saveErr != nil {
			return saveErr
		}
		if trade != nil {
			if saveErr := insertTrade(ctx, tx, trade); saveErr != nil {
				return saveErr
			}
		}
		updated = m
		return nil
	})
	return updated, err
}

// inTx runs fn inside a transaction, rolling back when fn fails.
func (r *MarketRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (txErr error) {
	tx, txErr := r.db.BeginTxx(ctx, nil)
	if txErr != nil {
		return fmt.Errorf("market_repo: begin tx: %w", txErr)
	}
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = fn(tx); txErr != nil {
		return txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("market_repo: commit: %w", txErr)
	}
	return nil
}

func lockMarket(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Market, error) {
	var m domain.Market
	err := tx.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo lock: %w", err)
	}
	return &m, nil
}

func saveMarket(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	query := `
		UPDATE markets
		SET yes_shares           = :yes_shares,
		    no_shares            = :no_shares,
		    total_collateral     = :total_collateral,
		    pending_creator_fees = :pending_creator_fees,
		    resolved             = :resolved,
		    yes_wins             = :yes_wins,
		    resolved_at          = :resolved_at,
		    updated_at           = :updated_at
		WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("market_repo save: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
