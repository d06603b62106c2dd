package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sablepoint/dealdesk/internal/evaluator"
	"github.com/sablepoint/dealdesk/internal/metrics"
)

// ScoreDeal handles POST /deals/{id}/score. The returned score is also
// persisted into the deal's attributes so backtests can replay it later.
func (h *Handlers) ScoreDeal(w http.ResponseWriter, r *http.Request) {
	if h.scorer == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "evaluator_disabled",
			"AI evaluator is not configured")
		return
	}

	deal, ok := h.dealFromPath(w, r)
	if !ok {
		return
	}
	if deal.Memo == "" {
		h.writeError(w, r, http.StatusUnprocessableEntity, "missing_memo",
			"deal has no memo to evaluate")
		return
	}

	result, err := h.scorer.Score(r.Context(), deal)
	if err != nil {
		metrics.EvaluatorCalls.WithLabelValues("score", "error").Inc()
		if evaluator.IsUnavailable(err) {
			h.writeError(w, r, http.StatusServiceUnavailable, "evaluator_unavailable", err.Error())
			return
		}
		h.writeError(w, r, http.StatusBadGateway, "score_failed", err.Error())
		return
	}
	metrics.EvaluatorCalls.WithLabelValues("score", "ok").Inc()

	if deal.Attributes == nil {
		deal.Attributes = make(map[string]interface{})
	}
	deal.Attributes["ai_score"] = result.Total
	deal.Attributes["ai_rationale"] = result.Rationale
	deal.UpdatedAt = h.now()
	if err := h.repos.Deals.Update(r.Context(), deal); err != nil {
		// The score itself is still valid; report it but note the miss.
		log.Warn().Err(err).Int64("deal_id", deal.ID).Msg("failed to persist deal score")
	}

	h.writeJSON(w, http.StatusOK, ScoreResponse{
		DealID:    deal.ID,
		Company:   deal.Company,
		Total:     result.Total,
		Team:      result.Team,
		Market:    result.Market,
		Traction:  result.Traction,
		Terms:     result.Terms,
		Rationale: result.Rationale,
	})
}
