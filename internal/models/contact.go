package models

import (
	"fmt"
	"time"
)

// Tier classifies a contact's role in the network graph
type Tier string

const (
	TierGatekeeper       Tier = "gatekeeper"
	TierCapitalAllocator Tier = "capital_allocator"
	TierFounder          Tier = "founder"
	TierAdvisor          Tier = "advisor"
	TierConnector        Tier = "connector"
)

// ParseTier validates and converts a string to a Tier
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierGatekeeper, TierCapitalAllocator, TierFounder, TierAdvisor, TierConnector:
		return t, nil
	default:
		return "", fmt.Errorf("invalid tier: %q", s)
	}
}

// Contact is a network-graph node with a derived warmth score
type Contact struct {
	ID           int64                  `json:"id" db:"id"`
	Name         string                 `json:"name" db:"name"`
	Organization string                 `json:"organization" db:"organization"`
	Tier         Tier                   `json:"tier" db:"tier"`
	WarmthScore  float64                `json:"warmth_score" db:"warmth_score"`
	LastTouchAt  *time.Time             `json:"last_touch_at,omitempty" db:"last_touch_at"`
	AccessPaths  []int64                `json:"access_paths"` // contact IDs this person can introduce you to
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
}

// Touchpoint is a logged interaction event with a contact
type Touchpoint struct {
	ID         int64     `json:"id" db:"id"`
	ContactID  int64     `json:"contact_id" db:"contact_id"`
	Channel    string    `json:"channel" db:"channel"` // email, call, meeting, event, intro
	Note       string    `json:"note" db:"note"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
