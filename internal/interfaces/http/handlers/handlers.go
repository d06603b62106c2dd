// Package handlers implements the JSON endpoint handlers for the CRM API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sablepoint/dealdesk/internal/cache"
	"github.com/sablepoint/dealdesk/internal/evaluator"
	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/network"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

// DealScorer abstracts the AI evaluator for handler tests
type DealScorer interface {
	Score(ctx context.Context, deal *models.Deal) (*evaluator.ScoreResult, error)
}

// Config holds the handler dependencies
type Config struct {
	Repos  persistence.Repository
	Scorer DealScorer               // nil disables POST /deals/{id}/score
	Warmth *network.WarmthScorer    // nil falls back to defaults
	Cache  *cache.WarmthCache       // nil disables the warmth cache
	Hub    *Hub                     // nil disables /events broadcasts
	PingDB func(context.Context) error
	Now    func() time.Time
}

// Handlers manages the HTTP endpoint handlers
type Handlers struct {
	repos  persistence.Repository
	scorer DealScorer
	warmth *network.WarmthScorer
	cache  *cache.WarmthCache
	hub    *Hub
	pingDB func(context.Context) error
	now    func() time.Time
}

// NewHandlers creates a handlers instance from its dependencies
func NewHandlers(config Config) *Handlers {
	h := &Handlers{
		repos:  config.Repos,
		scorer: config.Scorer,
		warmth: config.Warmth,
		cache:  config.Cache,
		hub:    config.Hub,
		pingDB: config.PingDB,
		now:    config.Now,
	}
	if h.warmth == nil {
		h.warmth = network.NewWarmthScorer(nil)
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	return h
}

// writeJSON writes a JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes a standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := r.Context().Value(RequestIDKey)
	if requestID == nil {
		requestID = "unknown"
	}

	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID.(string),
		Timestamp: h.now(),
	})
}

// decodeBody parses a JSON request body into dst
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}
