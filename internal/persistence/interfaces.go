// Package persistence defines repository contracts for the CRM's Postgres
// storage. Implementations live in the postgres subpackage.
package persistence

import (
	"context"
	"time"

	"github.com/sablepoint/dealdesk/internal/models"
)

// TimeRange represents a time window for list queries
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Last returns a range covering the trailing duration ending now
func Last(d time.Duration) TimeRange {
	now := time.Now().UTC()
	return TimeRange{From: now.Add(-d), To: now}
}

// DealsRepo provides pipeline record persistence
type DealsRepo interface {
	// Insert adds a new deal, assigning ID and timestamps
	Insert(ctx context.Context, deal *models.Deal) error

	// Update persists mutable fields including stage, outcome and history
	Update(ctx context.Context, deal *models.Deal) error

	// GetByID retrieves a single deal; sql.ErrNoRows maps to (nil, nil)
	GetByID(ctx context.Context, id int64) (*models.Deal, error)

	// List returns the most recently updated deals
	List(ctx context.Context, limit int) ([]models.Deal, error)

	// ListByStage retrieves deals currently in a stage
	ListByStage(ctx context.Context, stage models.Stage, limit int) ([]models.Deal, error)

	// CountByStage returns deal counts grouped by stage
	CountByStage(ctx context.Context) (map[models.Stage]int64, error)
}

// ContactsRepo provides network-graph node persistence
type ContactsRepo interface {
	Insert(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id int64) (*models.Contact, error)

	// List returns contacts ordered by warmth descending
	List(ctx context.Context, limit int) ([]models.Contact, error)

	// UpdateWarmth persists a recomputed warmth score and last-touch time
	UpdateWarmth(ctx context.Context, id int64, score float64, lastTouch *time.Time) error
}

// TouchpointsRepo provides interaction event persistence
type TouchpointsRepo interface {
	Insert(ctx context.Context, tp *models.Touchpoint) error
	ListByContact(ctx context.Context, contactID int64, tr TimeRange, limit int) ([]models.Touchpoint, error)
}

// PortfolioRepo provides position and valuation snapshot persistence
type PortfolioRepo interface {
	Insert(ctx context.Context, pos *models.PortfolioPosition) error
	Update(ctx context.Context, pos *models.PortfolioPosition) error

	// GetByDealID finds the position opened for a closed deal
	GetByDealID(ctx context.Context, dealID int64) (*models.PortfolioPosition, error)

	List(ctx context.Context) ([]models.PortfolioPosition, error)

	InsertSnapshot(ctx context.Context, snap *models.ValuationSnapshot) error
	ListSnapshots(ctx context.Context, positionID int64, limit int) ([]models.ValuationSnapshot, error)
}

// ContentRepo provides insight post persistence
type ContentRepo interface {
	Insert(ctx context.Context, post *models.InsightPost) error
	Update(ctx context.Context, post *models.InsightPost) error
	GetByID(ctx context.Context, id int64) (*models.InsightPost, error)
	List(ctx context.Context, limit int) ([]models.InsightPost, error)

	// ListDue returns scheduled posts whose scheduled_at has passed
	ListDue(ctx context.Context, now time.Time) ([]models.InsightPost, error)

	// MarkPublished transitions a post to published at the given time
	MarkPublished(ctx context.Context, id int64, at time.Time) error
}

// Repository aggregates all persistence interfaces
type Repository struct {
	Deals       DealsRepo
	Contacts    ContactsRepo
	Touchpoints TouchpointsRepo
	Portfolio   PortfolioRepo
	Content     ContentRepo
}
