package handlers

import (
	"net/http"
	"strconv"

	"github.com/sablepoint/dealdesk/internal/backtest"
	"github.com/sablepoint/dealdesk/internal/pipeline"
)

// dealHistoryLimit bounds how many deals the analytics endpoints replay
const dealHistoryLimit = 1000

// PipelineVelocity handles GET /pipeline/velocity
func (h *Handlers) PipelineVelocity(w http.ResponseWriter, r *http.Request) {
	deals, err := h.repos.Deals.List(r.Context(), dealHistoryLimit)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	counts, err := h.repos.Deals.CountByStage(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "count_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, VelocityResponse{
		VelocityReport: pipeline.Velocity(deals),
		StageCounts:    counts,
	})
}

// Backtest handles GET /backtest?threshold=. Only deals that carry a stored
// AI score and a resolved outcome contribute records.
func (h *Handlers) Backtest(w http.ResponseWriter, r *http.Request) {
	threshold := 70.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_threshold",
				"threshold must be numeric")
			return
		}
		threshold = t
	}

	deals, err := h.repos.Deals.List(r.Context(), dealHistoryLimit)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	records := make([]backtest.Record, 0, len(deals))
	for i := range deals {
		deal := &deals[i]
		score, ok := scoreAttribute(deal.Attributes)
		if !ok {
			continue
		}
		records = append(records, backtest.Record{
			DealID:  deal.ID,
			Company: deal.Company,
			Score:   score,
			Outcome: deal.Outcome,
		})
	}

	result, err := backtest.Evaluate(records, threshold)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_threshold", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// scoreAttribute extracts a stored AI score from deal attributes. JSONB
// round-trips numbers as float64 but inserts made in-process may carry
// other numeric types.
func scoreAttribute(attrs map[string]interface{}) (float64, bool) {
	raw, ok := attrs["ai_score"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
