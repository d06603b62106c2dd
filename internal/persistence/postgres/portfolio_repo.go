package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

// portfolioRepo implements PortfolioRepo for PostgreSQL
type portfolioRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPortfolioRepo creates a new PostgreSQL portfolio repository
func NewPortfolioRepo(db *sqlx.DB, timeout time.Duration) persistence.PortfolioRepo {
	return &portfolioRepo{db: db, timeout: timeout}
}

const positionColumns = `id, deal_id, company, invested, ownership_pct, entry_valuation, current_valuation, health, entered_at, created_at, updated_at`

// Insert opens a position for a closed deal; one position per deal
func (r *portfolioRepo) Insert(ctx context.Context, pos *models.PortfolioPosition) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := models.ParseHealth(string(pos.Health)); err != nil {
		return err
	}

	query := `
		INSERT INTO portfolio_positions (deal_id, company, invested, ownership_pct, entry_valuation, current_valuation, health, entered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		pos.DealID, pos.Company, pos.Invested, pos.OwnershipPct,
		pos.EntryValuation, pos.CurrentValuation, pos.Health, pos.EnteredAt).
		Scan(&pos.ID, &pos.CreatedAt, &pos.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("position already exists for deal %d: %w", pos.DealID, err)
		}
		return fmt.Errorf("failed to insert position: %w", err)
	}

	return nil
}

// Update persists valuation and health changes
func (r *portfolioRepo) Update(ctx context.Context, pos *models.PortfolioPosition) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE portfolio_positions
		SET current_valuation = $1, health = $2, ownership_pct = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		pos.CurrentValuation, pos.Health, pos.OwnershipPct, pos.ID).
		Scan(&pos.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("position %d not found", pos.ID)
		}
		return fmt.Errorf("failed to update position: %w", err)
	}

	return nil
}

// GetByDealID finds the position opened for a closed deal
func (r *portfolioRepo) GetByDealID(ctx context.Context, dealID int64) (*models.PortfolioPosition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + positionColumns + ` FROM portfolio_positions WHERE deal_id = $1`

	var pos models.PortfolioPosition
	err := r.db.QueryRowxContext(ctx, query, dealID).Scan(
		&pos.ID, &pos.DealID, &pos.Company, &pos.Invested, &pos.OwnershipPct,
		&pos.EntryValuation, &pos.CurrentValuation, &pos.Health,
		&pos.EnteredAt, &pos.CreatedAt, &pos.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get position by deal id: %w", err)
	}

	return &pos, nil
}

// List returns all positions, newest first
func (r *portfolioRepo) List(ctx context.Context) ([]models.PortfolioPosition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + positionColumns + ` FROM portfolio_positions ORDER BY entered_at DESC`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []models.PortfolioPosition
	for rows.Next() {
		var pos models.PortfolioPosition
		if err := rows.Scan(
			&pos.ID, &pos.DealID, &pos.Company, &pos.Invested, &pos.OwnershipPct,
			&pos.EntryValuation, &pos.CurrentValuation, &pos.Health,
			&pos.EnteredAt, &pos.CreatedAt, &pos.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return positions, nil
}

// InsertSnapshot appends a valuation snapshot for a position
func (r *portfolioRepo) InsertSnapshot(ctx context.Context, snap *models.ValuationSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO valuation_snapshots (position_id, valuation, taken_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query, snap.PositionID, snap.Valuation, snap.TakenAt).
		Scan(&snap.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return fmt.Errorf("unknown position %d: %w", snap.PositionID, err)
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// ListSnapshots returns a position's valuation history, newest first
func (r *portfolioRepo) ListSnapshots(ctx context.Context, positionID int64, limit int) ([]models.ValuationSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, position_id, valuation, taken_at
		FROM valuation_snapshots
		WHERE position_id = $1
		ORDER BY taken_at DESC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, positionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.ValuationSnapshot
	for rows.Next() {
		var snap models.ValuationSnapshot
		if err := rows.Scan(&snap.ID, &snap.PositionID, &snap.Valuation, &snap.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return snaps, nil
}
