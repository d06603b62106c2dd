package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sablepoint/dealdesk/internal/models"
)

// ListContent handles GET /content
func (h *Handlers) ListContent(w http.ResponseWriter, r *http.Request) {
	posts, err := h.repos.Content.List(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

// CreateContent handles POST /content. Posts start as drafts unless a
// schedule is supplied.
func (h *Handlers) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_title", "title is required")
		return
	}

	status := models.PostDraft
	if req.Status != "" {
		var err error
		if status, err = models.ParsePostStatus(req.Status); err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}
	}
	if status == models.PostScheduled && req.ScheduledAt == nil {
		h.writeError(w, r, http.StatusBadRequest, "missing_schedule",
			"scheduled posts require scheduled_at")
		return
	}
	if status == models.PostPublished {
		h.writeError(w, r, http.StatusBadRequest, "invalid_status",
			"posts cannot be created as published")
		return
	}

	post := &models.InsightPost{
		Title:       req.Title,
		Body:        req.Body,
		Status:      status,
		Channels:    req.Channels,
		ScheduledAt: req.ScheduledAt,
	}
	if err := h.repos.Content.Insert(r.Context(), post); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "insert_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, post)
}

// ScheduleContent handles POST /content/{id}/schedule, moving a draft to
// scheduled or rescheduling an already-scheduled post. Published posts are
// final.
func (h *Handlers) ScheduleContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_id", "post id must be numeric")
		return
	}

	var req SchedulePostRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.ScheduledAt.IsZero() {
		h.writeError(w, r, http.StatusBadRequest, "missing_schedule", "scheduled_at is required")
		return
	}

	post, err := h.repos.Content.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	if post == nil {
		h.writeError(w, r, http.StatusNotFound, "post_not_found", "no post with that id")
		return
	}
	if post.Status == models.PostPublished {
		h.writeError(w, r, http.StatusUnprocessableEntity, "invalid_status",
			"published posts cannot be rescheduled")
		return
	}

	at := req.ScheduledAt.UTC()
	post.Status = models.PostScheduled
	post.ScheduledAt = &at

	if err := h.repos.Content.Update(r.Context(), post); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, post)
}
