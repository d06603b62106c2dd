package network

import (
	"time"

	"github.com/sablepoint/dealdesk/internal/models"
)

// DecayParams controls how a tier's warmth decays with touchpoint recency
type DecayParams struct {
	FreshDays   float64 `yaml:"fresh_days"`   // full warmth within this window
	HorizonDays float64 `yaml:"horizon_days"` // warmth reaches the floor here
	Floor       float64 `yaml:"floor"`        // minimum score, never below
}

// WarmthConfig holds per-tier decay parameters and score bounds
type WarmthConfig struct {
	MaxScore float64                      `yaml:"max_score"`
	Tiers    map[models.Tier]DecayParams `yaml:"tiers"`
}

// DefaultWarmthConfig returns production decay parameters. Connectors and
// gatekeepers go cold fastest; founders and capital allocators hold warmth
// the longest.
func DefaultWarmthConfig() *WarmthConfig {
	return &WarmthConfig{
		MaxScore: 10.0,
		Tiers: map[models.Tier]DecayParams{
			models.TierConnector:        {FreshDays: 7, HorizonDays: 60, Floor: 1.0},
			models.TierGatekeeper:       {FreshDays: 7, HorizonDays: 60, Floor: 1.0},
			models.TierAdvisor:          {FreshDays: 14, HorizonDays: 90, Floor: 1.0},
			models.TierFounder:          {FreshDays: 30, HorizonDays: 180, Floor: 2.0},
			models.TierCapitalAllocator: {FreshDays: 30, HorizonDays: 180, Floor: 2.0},
		},
	}
}

// WarmthScorer computes touchpoint-recency warmth scores
type WarmthScorer struct {
	config *WarmthConfig
}

// NewWarmthScorer creates a scorer; nil config uses defaults
func NewWarmthScorer(config *WarmthConfig) *WarmthScorer {
	if config == nil {
		config = DefaultWarmthConfig()
	}
	return &WarmthScorer{config: config}
}

// Score derives a contact's warmth from its most recent touchpoint. A contact
// with no touchpoints scores the tier floor. Within the fresh window the
// score is the maximum, then it decays linearly to the floor at the horizon.
func (s *WarmthScorer) Score(tier models.Tier, lastTouch *time.Time, now time.Time) float64 {
	params, ok := s.config.Tiers[tier]
	if !ok {
		params = DecayParams{FreshDays: 14, HorizonDays: 90, Floor: 1.0}
	}

	if lastTouch == nil {
		return params.Floor
	}

	days := now.Sub(*lastTouch).Hours() / 24.0
	if days < 0 {
		days = 0
	}

	if days <= params.FreshDays {
		return s.config.MaxScore
	}
	if days >= params.HorizonDays {
		return params.Floor
	}

	span := params.HorizonDays - params.FreshDays
	frac := (days - params.FreshDays) / span
	return s.config.MaxScore - frac*(s.config.MaxScore-params.Floor)
}

// Rescore recomputes warmth for a contact in place using its last touch time
func (s *WarmthScorer) Rescore(c *models.Contact, now time.Time) {
	c.WarmthScore = s.Score(c.Tier, c.LastTouchAt, now)
}
