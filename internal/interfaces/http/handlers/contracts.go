package handlers

import (
	"time"

	"github.com/sablepoint/dealdesk/internal/markdown"
	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/pipeline"
)

type contextKey string

// RequestIDKey carries the per-request ID through the context
const RequestIDKey contextKey = "request_id"

// ErrorResponse is the standardized error payload
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports service and dependency status
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// CreateDealRequest is the POST /deals payload
type CreateDealRequest struct {
	Company    string                 `json:"company"`
	Sector     string                 `json:"sector"`
	CheckSize  float64                `json:"check_size"`
	Valuation  float64                `json:"valuation"`
	Memo       string                 `json:"memo"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// StageRequest is the POST /deals/{id}/stage payload
type StageRequest struct {
	Stage   string `json:"stage"`
	Outcome string `json:"outcome,omitempty"`
}

// CreateContactRequest is the POST /contacts payload
type CreateContactRequest struct {
	Name         string  `json:"name"`
	Organization string  `json:"organization"`
	Tier         string  `json:"tier"`
	AccessPaths  []int64 `json:"access_paths,omitempty"`
}

// UpdateContactRequest is the PUT /contacts/{id} payload; empty fields are
// left unchanged
type UpdateContactRequest struct {
	Name         string  `json:"name,omitempty"`
	Organization string  `json:"organization,omitempty"`
	Tier         string  `json:"tier,omitempty"`
	AccessPaths  []int64 `json:"access_paths,omitempty"`
}

// TouchpointRequest is the POST /contacts/{id}/touchpoints payload
type TouchpointRequest struct {
	Channel    string     `json:"channel"`
	Note       string     `json:"note"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// CreatePostRequest is the POST /content payload
type CreatePostRequest struct {
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	Channels    []string   `json:"channels,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// SchedulePostRequest is the POST /content/{id}/schedule payload
type SchedulePostRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// VelocityResponse pairs the dwell report with live per-stage deal counts
type VelocityResponse struct {
	*pipeline.VelocityReport
	StageCounts map[models.Stage]int64 `json:"stage_counts"`
}

// MemoResponse is the GET /deals/{id}/memo payload
type MemoResponse struct {
	DealID   int64              `json:"deal_id"`
	Company  string             `json:"company"`
	Sections []markdown.Section `json:"sections"`
}

// PositionRecord is a portfolio position with derived figures
type PositionRecord struct {
	Position         models.PortfolioPosition `json:"position"`
	CurrentValue     float64                  `json:"current_value"`
	MOIC             float64                  `json:"moic"`
	AnnualizedReturn float64                  `json:"annualized_return"`
}

// PortfolioResponse is the GET /portfolio payload
type PortfolioResponse struct {
	Timestamp     time.Time        `json:"timestamp"`
	Positions     []PositionRecord `json:"positions"`
	TotalInvested float64          `json:"total_invested"`
	TotalValue    float64          `json:"total_value"`
}

// ScoreResponse is the POST /deals/{id}/score payload
type ScoreResponse struct {
	DealID    int64   `json:"deal_id"`
	Company   string  `json:"company"`
	Total     float64 `json:"total"`
	Team      float64 `json:"team"`
	Market    float64 `json:"market"`
	Traction  float64 `json:"traction"`
	Terms     float64 `json:"terms"`
	Rationale string  `json:"rationale"`
}
