package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

// touchpointsRepo implements TouchpointsRepo for PostgreSQL
type touchpointsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTouchpointsRepo creates a new PostgreSQL touchpoints repository
func NewTouchpointsRepo(db *sqlx.DB, timeout time.Duration) persistence.TouchpointsRepo {
	return &touchpointsRepo{db: db, timeout: timeout}
}

// Insert adds a new touchpoint; the contact reference must exist
func (r *touchpointsRepo) Insert(ctx context.Context, tp *models.Touchpoint) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO touchpoints (contact_id, channel, note, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		tp.ContactID, tp.Channel, tp.Note, tp.OccurredAt).
		Scan(&tp.ID, &tp.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return fmt.Errorf("unknown contact %d: %w", tp.ContactID, err)
		}
		return fmt.Errorf("failed to insert touchpoint: %w", err)
	}

	return nil
}

// ListByContact retrieves touchpoints for a contact within a time range,
// newest first
func (r *touchpointsRepo) ListByContact(ctx context.Context, contactID int64, tr persistence.TimeRange, limit int) ([]models.Touchpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, contact_id, channel, note, occurred_at, created_at
		FROM touchpoints
		WHERE contact_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
		ORDER BY occurred_at DESC
		LIMIT $4`

	rows, err := r.db.QueryxContext(ctx, query, contactID, tr.From, tr.To, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query touchpoints: %w", err)
	}
	defer rows.Close()

	var touchpoints []models.Touchpoint
	for rows.Next() {
		var tp models.Touchpoint
		if err := rows.Scan(&tp.ID, &tp.ContactID, &tp.Channel, &tp.Note, &tp.OccurredAt, &tp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan touchpoint: %w", err)
		}
		touchpoints = append(touchpoints, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return touchpoints, nil
}
