// Package portfolio derives position health from valuation trends.
package portfolio

import "github.com/sablepoint/dealdesk/internal/models"

// Markdown thresholds relative to the prior valuation
const (
	watchThreshold      = 1.00 // any markdown
	distressedThreshold = 0.75 // 25%+ markdown
)

// DeriveHealth classifies a position from its latest valuation against the
// prior one. No prior observation means no evidence of trouble.
func DeriveHealth(prior, current float64) models.Health {
	if prior <= 0 {
		return models.HealthHealthy
	}

	ratio := current / prior
	switch {
	case ratio < distressedThreshold:
		return models.HealthDistressed
	case ratio < watchThreshold:
		return models.HealthWatch
	default:
		return models.HealthHealthy
	}
}

// AnnualizedReturn approximates simple annualized return from entry over
// the holding period in years
func AnnualizedReturn(moic, years float64) float64 {
	if years <= 0 || moic <= 0 {
		return 0
	}
	// Simple annualization, not IRR: (MOIC - 1) / years
	return (moic - 1) / years
}
