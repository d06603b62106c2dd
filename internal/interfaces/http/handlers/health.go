package handlers

import (
	"net/http"
)

// Health handles GET /health. Dependency failures degrade the status but
// keep the endpoint responding 200 so probes can read the detail.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  h.now(),
		Components: make(map[string]string),
	}

	if h.pingDB != nil {
		if err := h.pingDB(r.Context()); err != nil {
			response.Status = "degraded"
			response.Components["database"] = err.Error()
		} else {
			response.Components["database"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			response.Status = "degraded"
			response.Components["warmth_cache"] = err.Error()
		} else {
			response.Components["warmth_cache"] = "ok"
		}
	}

	if h.scorer == nil {
		response.Components["evaluator"] = "disabled"
	} else {
		response.Components["evaluator"] = "configured"
	}

	h.writeJSON(w, http.StatusOK, response)
}
