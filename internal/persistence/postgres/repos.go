package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sablepoint/dealdesk/internal/persistence"
)

// NewRepository wires all PostgreSQL repositories over one connection pool
func NewRepository(db *sqlx.DB, timeout time.Duration) persistence.Repository {
	return persistence.Repository{
		Deals:       NewDealsRepo(db, timeout),
		Contacts:    NewContactsRepo(db, timeout),
		Touchpoints: NewTouchpointsRepo(db, timeout),
		Portfolio:   NewPortfolioRepo(db, timeout),
		Content:     NewContentRepo(db, timeout),
	}
}
