// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/ku-polls/live"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
	"github.com/danielhkuo/ku-polls/web"
)

// IndexSize is how many questions the index page lists
const IndexSize = 5

type ResultsHandler struct {
	store *store.Store
	hub   *live.Hub
	pages *web.Renderer
	now   func() time.Time
}

func NewResultsHandler(s *store.Store, hub *live.Hub, pages *web.Renderer) *ResultsHandler {
	return &ResultsHandler{store: s, hub: hub, pages: pages, now: time.Now}
}

// Index handles GET /polls/
// Lists the latest published questions, newest first
func (h *ResultsHandler) Index(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListPublished(r.Context(), h.now(), IndexSize)
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	page := web.IndexPage{Questions: questions}
	page.User, _ = middleware.UserFrom(r.Context())
	h.pages.Render(w, http.StatusOK, web.PageIndex, page)
}

// Results handles GET /polls/{id}/results/
func (h *ResultsHandler) Results(w http.ResponseWriter, r *http.Request) {
	question, ok := loadPublished(w, r, h.store, h.now())
	if !ok {
		return
	}

	choices, err := h.store.ListChoices(r.Context(), question.ID)
	if err != nil {
		slog.Error("failed to query choices", "error", err, "question_id", question.ID)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	page := web.ResultsPage{Question: question, Choices: choices}
	for _, c := range choices {
		page.TotalVotes += c.VoteCount
	}
	page.User, _ = middleware.UserFrom(r.Context())
	h.pages.Render(w, http.StatusOK, web.PageResults, page)
}

// ResultsJSON handles GET /api/questions/{id}/results
func (h *ResultsHandler) ResultsJSON(w http.ResponseWriter, r *http.Request) {
	question, err := h.store.GetQuestion(r.Context(), r.PathValue("id"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to query question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err != nil || !question.IsPublished(h.now()) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}

	choices, err := h.store.ListChoices(r.Context(), question.ID)
	if err != nil {
		slog.Error("failed to query choices", "error", err, "question_id", question.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.Tallies(question, choices))
}

// Live handles GET /polls/{id}/live
// Upgrades to a websocket that receives tallies after every vote
func (h *ResultsHandler) Live(w http.ResponseWriter, r *http.Request) {
	question, ok := loadPublished(w, r, h.store, h.now())
	if !ok {
		return
	}

	choices, err := h.store.ListChoices(r.Context(), question.ID)
	if err != nil {
		slog.Error("failed to query choices", "error", err, "question_id", question.ID)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	h.hub.Serve(w, r, question.ID, models.Tallies(question, choices))
}
