package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sablepoint/dealdesk/internal/markdown"
	"github.com/sablepoint/dealdesk/internal/metrics"
	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/pipeline"
)

const defaultListLimit = 100

// ListDeals handles GET /deals with optional ?stage= and ?limit=
func (h *Handlers) ListDeals(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultListLimit)

	var (
		deals []models.Deal
		err   error
	)
	if stageParam := r.URL.Query().Get("stage"); stageParam != "" {
		stage, perr := models.ParseStage(stageParam)
		if perr != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_stage", perr.Error())
			return
		}
		deals, err = h.repos.Deals.ListByStage(r.Context(), stage, limit)
	} else {
		deals, err = h.repos.Deals.List(r.Context(), limit)
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, deals)
}

// CreateDeal handles POST /deals
func (h *Handlers) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req CreateDealRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Company == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_company", "company is required")
		return
	}

	now := h.now()
	deal := &models.Deal{
		Company:      req.Company,
		Sector:       req.Sector,
		Stage:        models.StageSourced,
		Outcome:      models.OutcomePending,
		CheckSize:    req.CheckSize,
		Valuation:    req.Valuation,
		Memo:         req.Memo,
		StageHistory: []models.StageEntry{{Stage: models.StageSourced, EnteredAt: now}},
		Attributes:   req.Attributes,
	}

	if err := h.repos.Deals.Insert(r.Context(), deal); err != nil {
		h.writeError(w, r, http.StatusConflict, "insert_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, deal)
}

// GetDeal handles GET /deals/{id}
func (h *Handlers) GetDeal(w http.ResponseWriter, r *http.Request) {
	deal, ok := h.dealFromPath(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, deal)
}

// AdvanceStage handles POST /deals/{id}/stage. Stages advance one at a
// time; moving to closed requires a resolved outcome.
func (h *Handlers) AdvanceStage(w http.ResponseWriter, r *http.Request) {
	deal, ok := h.dealFromPath(w, r)
	if !ok {
		return
	}

	var req StageRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_stage", err.Error())
		return
	}

	outcome := models.OutcomePending
	if req.Outcome != "" {
		if outcome, err = models.ParseOutcome(req.Outcome); err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_outcome", err.Error())
			return
		}
	}

	from := deal.Stage
	if err := pipeline.Transition(deal, stage, outcome, h.now()); err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
		return
	}

	if err := h.repos.Deals.Update(r.Context(), deal); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	if deal.Stage == models.StageClosed && deal.Outcome == models.OutcomeInvested {
		h.openPosition(r.Context(), deal)
	}

	metrics.StageTransitions.WithLabelValues(string(stage)).Inc()
	if h.hub != nil {
		h.hub.Broadcast(StageEvent{
			DealID:  deal.ID,
			Company: deal.Company,
			From:    from,
			To:      stage,
			Outcome: deal.Outcome,
			At:      deal.UpdatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, deal)
}

// DealMemo handles GET /deals/{id}/memo, splitting the memo into titled
// sections for detail views
func (h *Handlers) DealMemo(w http.ResponseWriter, r *http.Request) {
	deal, ok := h.dealFromPath(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, MemoResponse{
		DealID:   deal.ID,
		Company:  deal.Company,
		Sections: markdown.Sections(deal.Memo),
	})
}

// openPosition records a portfolio holding for a deal that closed as an
// investment. The close is already committed, so failures here log rather
// than fail the request; at most one position exists per deal.
func (h *Handlers) openPosition(ctx context.Context, deal *models.Deal) {
	existing, err := h.repos.Portfolio.GetByDealID(ctx, deal.ID)
	if err != nil {
		log.Warn().Err(err).Int64("deal_id", deal.ID).Msg("position lookup failed")
		return
	}
	if existing != nil {
		return
	}

	pos := &models.PortfolioPosition{
		DealID:           deal.ID,
		Company:          deal.Company,
		Invested:         deal.CheckSize,
		EntryValuation:   deal.Valuation,
		CurrentValuation: deal.Valuation,
		Health:           models.HealthHealthy,
		EnteredAt:        h.now(),
	}
	if deal.Valuation > 0 {
		pos.OwnershipPct = deal.CheckSize / deal.Valuation * 100.0
	}

	if err := h.repos.Portfolio.Insert(ctx, pos); err != nil {
		log.Warn().Err(err).Int64("deal_id", deal.ID).Msg("failed to open portfolio position")
		return
	}
	log.Info().Int64("deal_id", deal.ID).Str("company", deal.Company).
		Float64("invested", pos.Invested).Msg("Portfolio position opened")
}

// dealFromPath loads the deal addressed by the {id} path variable
func (h *Handlers) dealFromPath(w http.ResponseWriter, r *http.Request) (*models.Deal, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_id", "deal id must be numeric")
		return nil, false
	}

	deal, err := h.repos.Deals.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "lookup_failed", err.Error())
		return nil, false
	}
	if deal == nil {
		h.writeError(w, r, http.StatusNotFound, "deal_not_found", "no deal with that id")
		return nil, false
	}
	return deal, true
}

// queryLimit parses ?limit= with a default and a hard ceiling
func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
