package handlers

import (
	"net/http"

	"github.com/sablepoint/dealdesk/internal/portfolio"
)

// Portfolio handles GET /portfolio with derived valuation figures
func (h *Handlers) Portfolio(w http.ResponseWriter, r *http.Request) {
	positions, err := h.repos.Portfolio.List(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	now := h.now()
	response := PortfolioResponse{
		Timestamp: now,
		Positions: make([]PositionRecord, 0, len(positions)),
	}
	for i := range positions {
		pos := &positions[i]
		years := now.Sub(pos.EnteredAt).Hours() / (24 * 365)
		response.Positions = append(response.Positions, PositionRecord{
			Position:         *pos,
			CurrentValue:     pos.CurrentValue(),
			MOIC:             pos.MOIC(),
			AnnualizedReturn: portfolio.AnnualizedReturn(pos.MOIC(), years),
		})
		response.TotalInvested += pos.Invested
		response.TotalValue += pos.CurrentValue()
	}

	h.writeJSON(w, http.StatusOK, response)
}
