package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/network"
)

// contactGraphLimit bounds how many contacts the path finder indexes per
// request. A single-tenant book of contacts fits comfortably under this.
const contactGraphLimit = 5000

// NetworkPath handles GET /network/path?from=&to=. Both parameters accept
// a contact ID or a free-text name/organization fragment. A missing path
// is reported as an explicit no_path_found state, never an empty result.
func (h *Handlers) NetworkPath(w http.ResponseWriter, r *http.Request) {
	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")
	if fromParam == "" || toParam == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_parameter", "from and to are required")
		return
	}

	contacts, err := h.repos.Contacts.List(r.Context(), contactGraphLimit)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	finder := network.NewPathFinder(contacts)

	from, err := resolveParty(finder, fromParam)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "contact_not_found",
			"no contact matching from="+fromParam)
		return
	}
	target, err := resolveParty(finder, toParam)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "contact_not_found",
			"no contact matching to="+toParam)
		return
	}

	result, err := finder.FindPath(from.ID, target.ID)
	if errors.Is(err, network.ErrNoPath) {
		h.writeError(w, r, http.StatusNotFound, "no_path_found",
			"no access path from "+from.Name+" to "+target.Name)
		return
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "path_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// resolveParty interprets a path query parameter as a contact ID when
// numeric, otherwise as a name/organization fragment.
func resolveParty(finder *network.PathFinder, param string) (*models.Contact, error) {
	if id, err := strconv.ParseInt(param, 10, 64); err == nil {
		return finder.ByID(id)
	}
	return finder.Resolve(param)
}
