package models

import (
	"fmt"
	"time"
)

// Stage represents a deal's position in the pipeline
type Stage string

const (
	StageSourced   Stage = "sourced"
	StageScreening Stage = "screening"
	StageDiligence Stage = "diligence"
	StageTermSheet Stage = "term_sheet"
	StageClosed    Stage = "closed"
)

// stageOrder defines the forward-only pipeline ordering
var stageOrder = map[Stage]int{
	StageSourced:   0,
	StageScreening: 1,
	StageDiligence: 2,
	StageTermSheet: 3,
	StageClosed:    4,
}

// ParseStage validates and converts a string to a Stage
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if _, ok := stageOrder[stage]; !ok {
		return "", fmt.Errorf("invalid stage: %q", s)
	}
	return stage, nil
}

// Order returns the stage's position in the pipeline ordering
func (s Stage) Order() int {
	return stageOrder[s]
}

// Outcome represents a deal's terminal disposition
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeInvested Outcome = "invested"
	OutcomePassed   Outcome = "passed"
	OutcomeLost     Outcome = "lost" // lost to another firm or founder walked
)

// ParseOutcome validates and converts a string to an Outcome
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomePending, OutcomeInvested, OutcomePassed, OutcomeLost:
		return o, nil
	default:
		return "", fmt.Errorf("invalid outcome: %q", s)
	}
}

// StageEntry records when a deal entered a pipeline stage
type StageEntry struct {
	Stage     Stage     `json:"stage" db:"stage"`
	EnteredAt time.Time `json:"entered_at" db:"entered_at"`
}

// Deal is a pipeline record representing a candidate investment opportunity
type Deal struct {
	ID           int64                  `json:"id" db:"id"`
	Company      string                 `json:"company" db:"company"`
	Sector       string                 `json:"sector" db:"sector"`
	Stage        Stage                  `json:"stage" db:"stage"`
	Outcome      Outcome                `json:"outcome" db:"outcome"`
	CheckSize    float64                `json:"check_size" db:"check_size"`
	Valuation    float64                `json:"valuation" db:"valuation"`
	Memo         string                 `json:"memo" db:"memo"`
	StageHistory []StageEntry           `json:"stage_history"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
}

// IsClosed reports whether the deal has reached the terminal stage
func (d *Deal) IsClosed() bool {
	return d.Stage == StageClosed
}
