package models

import (
	"fmt"
	"time"
)

// Health classifies a portfolio position's trajectory
type Health string

const (
	HealthHealthy    Health = "healthy"
	HealthWatch      Health = "watch"
	HealthDistressed Health = "distressed"
)

// ParseHealth validates and converts a string to a Health classification
func ParseHealth(s string) (Health, error) {
	switch h := Health(s); h {
	case HealthHealthy, HealthWatch, HealthDistressed:
		return h, nil
	default:
		return "", fmt.Errorf("invalid health: %q", s)
	}
}

// PortfolioPosition tracks a post-investment holding for a closed deal
type PortfolioPosition struct {
	ID               int64     `json:"id" db:"id"`
	DealID           int64     `json:"deal_id" db:"deal_id"`
	Company          string    `json:"company" db:"company"`
	Invested         float64   `json:"invested" db:"invested"`
	OwnershipPct     float64   `json:"ownership_pct" db:"ownership_pct"`
	EntryValuation   float64   `json:"entry_valuation" db:"entry_valuation"`
	CurrentValuation float64   `json:"current_valuation" db:"current_valuation"`
	Health           Health    `json:"health" db:"health"`
	EnteredAt        time.Time `json:"entered_at" db:"entered_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// CurrentValue returns the position's implied value at the current valuation
func (p *PortfolioPosition) CurrentValue() float64 {
	return p.CurrentValuation * p.OwnershipPct / 100.0
}

// MOIC returns the multiple on invested capital
func (p *PortfolioPosition) MOIC() float64 {
	if p.Invested <= 0 {
		return 0
	}
	return p.CurrentValue() / p.Invested
}

// ValuationSnapshot is a point-in-time valuation record for a position
type ValuationSnapshot struct {
	ID         int64     `json:"id" db:"id"`
	PositionID int64     `json:"position_id" db:"position_id"`
	Valuation  float64   `json:"valuation" db:"valuation"`
	TakenAt    time.Time `json:"taken_at" db:"taken_at"`
}
