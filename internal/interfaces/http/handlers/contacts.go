package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

// ListContacts handles GET /contacts, warmest first. Warmth in the response
// reflects decay as of now: cached scores are used when present, misses are
// recomputed and backfilled.
func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.repos.Contacts.List(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	now := h.now()
	for i := range contacts {
		h.applyWarmth(r.Context(), &contacts[i], now)
	}

	h.writeJSON(w, http.StatusOK, contacts)
}

// applyWarmth sets a contact's effective warmth from the cache, falling back
// to a fresh decay computation on a miss. Cache failures degrade to the
// computed score.
func (h *Handlers) applyWarmth(ctx context.Context, contact *models.Contact, now time.Time) {
	if h.cache != nil {
		score, hit, err := h.cache.Get(ctx, contact.ID)
		if err != nil {
			log.Warn().Err(err).Int64("contact_id", contact.ID).Msg("warmth cache read failed")
		} else if hit {
			contact.WarmthScore = score
			return
		}
	}

	h.warmth.Rescore(contact, now)

	if h.cache != nil {
		if err := h.cache.Set(ctx, contact.ID, contact.WarmthScore); err != nil {
			log.Warn().Err(err).Int64("contact_id", contact.ID).Msg("warmth cache write failed")
		}
	}
}

// CreateContact handles POST /contacts
func (h *Handlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_name", "name is required")
		return
	}

	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_tier", err.Error())
		return
	}

	contact := &models.Contact{
		Name:         req.Name,
		Organization: req.Organization,
		Tier:         tier,
		WarmthScore:  h.warmth.Score(tier, nil, h.now()),
		AccessPaths:  req.AccessPaths,
	}

	if err := h.repos.Contacts.Insert(r.Context(), contact); err != nil {
		h.writeError(w, r, http.StatusConflict, "insert_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, contact)
}

// UpdateContact handles PUT /contacts/{id}. Omitted fields keep their
// current values; a tier change recomputes warmth since decay parameters
// differ per tier.
func (h *Handlers) UpdateContact(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.contactFromPath(w, r)
	if !ok {
		return
	}

	var req UpdateContactRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if req.Name != "" {
		contact.Name = req.Name
	}
	if req.Organization != "" {
		contact.Organization = req.Organization
	}
	if req.AccessPaths != nil {
		contact.AccessPaths = req.AccessPaths
	}
	if req.Tier != "" {
		tier, err := models.ParseTier(req.Tier)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_tier", err.Error())
			return
		}
		if tier != contact.Tier {
			contact.Tier = tier
			contact.WarmthScore = h.warmth.Score(tier, contact.LastTouchAt, h.now())
		}
	}

	if err := h.repos.Contacts.Update(r.Context(), contact); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context(), contact.ID); err != nil {
			log.Warn().Err(err).Int64("contact_id", contact.ID).Msg("warmth cache invalidation failed")
		}
	}

	h.writeJSON(w, http.StatusOK, contact)
}

// ListTouchpoints handles GET /contacts/{id}/touchpoints with optional ?days=
func (h *Handlers) ListTouchpoints(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.contactFromPath(w, r)
	if !ok {
		return
	}

	days := 90
	if raw := r.URL.Query().Get("days"); raw != "" {
		if d, err := strconv.Atoi(raw); err == nil && d > 0 {
			days = d
		}
	}

	tr := persistence.Last(time.Duration(days) * 24 * time.Hour)
	touchpoints, err := h.repos.Touchpoints.ListByContact(r.Context(), contact.ID, tr, queryLimit(r, defaultListLimit))
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, touchpoints)
}

// CreateTouchpoint handles POST /contacts/{id}/touchpoints. Logging an
// interaction refreshes the contact's warmth score and drops any cached
// value so readers never see a stale one.
func (h *Handlers) CreateTouchpoint(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.contactFromPath(w, r)
	if !ok {
		return
	}

	var req TouchpointRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Channel == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_channel", "channel is required")
		return
	}

	occurred := h.now()
	if req.OccurredAt != nil {
		occurred = req.OccurredAt.UTC()
	}

	tp := &models.Touchpoint{
		ContactID:  contact.ID,
		Channel:    req.Channel,
		Note:       req.Note,
		OccurredAt: occurred,
	}
	if err := h.repos.Touchpoints.Insert(r.Context(), tp); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "insert_failed", err.Error())
		return
	}

	lastTouch := occurred
	if contact.LastTouchAt != nil && contact.LastTouchAt.After(occurred) {
		lastTouch = *contact.LastTouchAt
	}
	score := h.warmth.Score(contact.Tier, &lastTouch, h.now())
	if err := h.repos.Contacts.UpdateWarmth(r.Context(), contact.ID, score, &lastTouch); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "warmth_update_failed", err.Error())
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context(), contact.ID); err != nil {
			log.Warn().Err(err).Int64("contact_id", contact.ID).Msg("warmth cache invalidation failed")
		}
	}

	h.writeJSON(w, http.StatusCreated, tp)
}

// contactFromPath loads the contact addressed by the {id} path variable
func (h *Handlers) contactFromPath(w http.ResponseWriter, r *http.Request) (*models.Contact, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_id", "contact id must be numeric")
		return nil, false
	}

	contact, err := h.repos.Contacts.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "lookup_failed", err.Error())
		return nil, false
	}
	if contact == nil {
		h.writeError(w, r, http.StatusNotFound, "contact_not_found", "no contact with that id")
		return nil, false
	}
	return contact, true
}
