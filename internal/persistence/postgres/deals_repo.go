package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

// dealsRepo implements DealsRepo for PostgreSQL
type dealsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDealsRepo creates a new PostgreSQL deals repository
func NewDealsRepo(db *sqlx.DB, timeout time.Duration) persistence.DealsRepo {
	return &dealsRepo{db: db, timeout: timeout}
}

const dealColumns = `id, company, sector, stage, outcome, check_size, valuation, memo, stage_history, attributes, created_at, updated_at`

// Insert adds a new deal record
func (r *dealsRepo) Insert(ctx context.Context, deal *models.Deal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := models.ParseStage(string(deal.Stage)); err != nil {
		return err
	}

	historyJSON, attributesJSON, err := marshalDealJSON(deal)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO deals (company, sector, stage, outcome, check_size, valuation, memo, stage_history, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRowxContext(ctx, query,
		deal.Company, deal.Sector, deal.Stage, deal.Outcome,
		deal.CheckSize, deal.Valuation, deal.Memo, historyJSON, attributesJSON).
		Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate deal: %w", err)
		}
		return fmt.Errorf("failed to insert deal: %w", err)
	}

	return nil
}

// Update persists mutable fields including stage, outcome and history
func (r *dealsRepo) Update(ctx context.Context, deal *models.Deal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	historyJSON, attributesJSON, err := marshalDealJSON(deal)
	if err != nil {
		return err
	}

	query := `
		UPDATE deals
		SET company = $1, sector = $2, stage = $3, outcome = $4,
		    check_size = $5, valuation = $6, memo = $7,
		    stage_history = $8, attributes = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at`

	err = r.db.QueryRowxContext(ctx, query,
		deal.Company, deal.Sector, deal.Stage, deal.Outcome,
		deal.CheckSize, deal.Valuation, deal.Memo,
		historyJSON, attributesJSON, deal.ID).
		Scan(&deal.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("deal %d not found", deal.ID)
		}
		return fmt.Errorf("failed to update deal: %w", err)
	}

	return nil
}

// GetByID retrieves a single deal
func (r *dealsRepo) GetByID(ctx context.Context, id int64) (*models.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, query, id)
	deal, err := scanDeal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deal by id: %w", err)
	}

	return deal, nil
}

// List returns most recently updated deals
func (r *dealsRepo) List(ctx context.Context, limit int) ([]models.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + dealColumns + ` FROM deals ORDER BY updated_at DESC LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

// ListByStage retrieves deals currently in a stage
func (r *dealsRepo) ListByStage(ctx context.Context, stage models.Stage, limit int) ([]models.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := models.ParseStage(string(stage)); err != nil {
		return nil, err
	}

	query := `SELECT ` + dealColumns + ` FROM deals WHERE stage = $1 ORDER BY updated_at DESC LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, stage, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals by stage: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

// CountByStage returns deal counts grouped by stage
func (r *dealsRepo) CountByStage(ctx context.Context) (map[models.Stage]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT stage, COUNT(*) FROM deals GROUP BY stage ORDER BY stage`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Stage]int64)
	for rows.Next() {
		var stage models.Stage
		var count int64
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		counts[stage] = count
	}

	return counts, rows.Err()
}

// Helpers

func marshalDealJSON(deal *models.Deal) ([]byte, []byte, error) {
	history := deal.StageHistory
	if history == nil {
		history = []models.StageEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal stage history: %w", err)
	}

	attributesJSON, err := json.Marshal(deal.Attributes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	return historyJSON, attributesJSON, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	var deal models.Deal
	var historyJSON, attributesJSON []byte

	err := row.Scan(
		&deal.ID, &deal.Company, &deal.Sector, &deal.Stage, &deal.Outcome,
		&deal.CheckSize, &deal.Valuation, &deal.Memo,
		&historyJSON, &attributesJSON, &deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &deal.StageHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stage history: %w", err)
		}
	}
	if len(attributesJSON) > 0 {
		if err := json.Unmarshal(attributesJSON, &deal.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}

	return &deal, nil
}

func scanDeals(rows *sqlx.Rows) ([]models.Deal, error) {
	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return deals, nil
}
