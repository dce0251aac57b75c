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
	"github.com/danielhkuo/ku-polls/voting"
	"github.com/danielhkuo/ku-polls/web"
)

// LoginURL is the login entry point anonymous voters are sent to
const LoginURL = "/accounts/login/"

type VotingHandler struct {
	store    *store.Store
	recorder *voting.Recorder
	hub      *live.Hub
	pages    *web.Renderer
	now      func() time.Time
}

func NewVotingHandler(s *store.Store, rec *voting.Recorder, hub *live.Hub, pages *web.Renderer) *VotingHandler {
	return &VotingHandler{store: s, recorder: rec, hub: hub, pages: pages, now: time.Now}
}

// Detail handles GET /polls/{id}/
func (h *VotingHandler) Detail(w http.ResponseWriter, r *http.Request) {
	question, ok := loadPublished(w, r, h.store, h.now())
	if !ok {
		return
	}

	h.renderDetail(w, r, question, http.StatusOK, "")
}

// Vote handles POST /polls/{id}/vote/
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.LoginRedirect(LoginURL, r.URL.RequestURI()), http.StatusFound)
		return
	}

	questionID := r.PathValue("id")
	choiceID := r.PostFormValue("choice")

	receipt, err := h.recorder.RecordVote(r.Context(), user, questionID, choiceID)
	switch {
	case err == nil:
	case errors.Is(err, voting.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, voting.ErrInvalidChoice), errors.Is(err, voting.ErrVotingClosed):
		question, qerr := h.store.GetQuestion(r.Context(), questionID)
		if qerr != nil {
			slog.Error("failed to reload question", "error", qerr, "question_id", questionID)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		status := http.StatusOK
		if errors.Is(err, voting.ErrVotingClosed) {
			status = http.StatusForbidden
		}
		h.renderDetail(w, r, question, status, err.Error())
		return
	case errors.Is(err, voting.ErrAuthenticationRequired):
		http.Redirect(w, r, middleware.LoginRedirect(LoginURL, r.URL.RequestURI()), http.StatusFound)
		return
	default:
		slog.Error("failed to record vote", "error", err, "question_id", questionID, "user_id", user.ID)
		http.Error(w, "Failed to record vote", http.StatusInternalServerError)
		return
	}

	h.pushTallies(r, receipt.Question)

	// Redirect after POST so a reload doesn't resubmit the form
	http.Redirect(w, r, receipt.ResultsPath(), http.StatusFound)
}

// VoteRedirect handles GET /polls/{id}/vote/, where a voter lands after
// logging in from a vote submission
func (h *VotingHandler) VoteRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/polls/"+r.PathValue("id")+"/", http.StatusFound)
}

func (h *VotingHandler) renderDetail(w http.ResponseWriter, r *http.Request, question models.Question, status int, message string) {
	choices, err := h.store.ListChoices(r.Context(), question.ID)
	if err != nil {
		slog.Error("failed to query choices", "error", err, "question_id", question.ID)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	page := web.DetailPage{
		Question:     question,
		Choices:      choices,
		CanVote:      question.CanVote(h.now()),
		ErrorMessage: message,
	}

	if user, ok := middleware.UserFrom(r.Context()); ok {
		page.User = user
		vote, err := h.store.GetVote(r.Context(), user.ID, question.ID)
		switch {
		case err == nil:
			page.PreviousChoiceID = vote.ChoiceID
		case !errors.Is(err, store.ErrNotFound):
			slog.Warn("failed to load previous vote", "error", err, "question_id", question.ID)
		}
	}

	h.pages.Render(w, status, web.PageDetail, page)
}

// pushTallies sends the fresh counts to live results subscribers
func (h *VotingHandler) pushTallies(r *http.Request, question models.Question) {
	if h.hub == nil || h.hub.Subscribers(question.ID) == 0 {
		return
	}
	choices, err := h.store.ListChoices(r.Context(), question.ID)
	if err != nil {
		slog.Warn("failed to load tallies for live update", "error", err, "question_id", question.ID)
		return
	}
	h.hub.Broadcast(question.ID, models.Tallies(question, choices))
}

// loadPublished resolves the {id} path value to a published question,
// writing a 404 or 500 itself when it can't
func loadPublished(w http.ResponseWriter, r *http.Request, s *store.Store, now time.Time) (models.Question, bool) {
	question, err := s.GetQuestion(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return models.Question{}, false
	}
	if err != nil {
		slog.Error("failed to query question", "error", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return models.Question{}, false
	}
	if !question.IsPublished(now) {
		http.NotFound(w, r)
		return models.Question{}, false
	}
	return question, true
}
