// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/cliparse"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
)

// AdminHandler manages questions and choices behind the X-Admin-Key header
type AdminHandler struct {
	store *store.Store
	cfg   cliparse.Config
	now   func() time.Time
}

func NewAdminHandler(s *store.Store, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{store: s, cfg: cfg, now: time.Now}
}

func (h *AdminHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), h.cfg.AdminKey); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// CreateQuestion handles POST /admin/questions
func (h *AdminHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var req models.CreateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.EndTime.IsZero() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "end_time is required")
		return
	}

	publishTime := h.now()
	if req.PublishTime != nil {
		publishTime = *req.PublishTime
	}
	if !req.EndTime.After(publishTime) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "end_time must be after publish_time")
		return
	}

	question, err := h.store.CreateQuestion(r.Context(), text, publishTime, req.EndTime)
	if err != nil {
		slog.Error("failed to create question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question")
		return
	}

	slog.Info("question created", "question_id", question.ID, "publish_time", question.PublishTime)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateQuestionResponse{
		QuestionID: question.ID,
	})
}

// AddChoice handles POST /admin/questions/{id}/choices
func (h *AdminHandler) AddChoice(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	questionID := r.PathValue("id")

	var req models.AddChoiceRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	_, err := h.store.GetQuestion(r.Context(), questionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		slog.Error("failed to query question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	choice, err := h.store.AddChoice(r.Context(), questionID, text)
	if err != nil {
		slog.Error("failed to add choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add choice")
		return
	}

	slog.Info("choice added", "question_id", questionID, "choice_id", choice.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddChoiceResponse{
		ChoiceID: choice.ID,
	})
}

// DeleteQuestion handles DELETE /admin/questions/{id}
// Choices and votes go with it
func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	questionID := r.PathValue("id")
	err := h.store.DeleteQuestion(r.Context(), questionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete question")
		return
	}

	slog.Info("question deleted", "question_id", questionID)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteChoice handles DELETE /admin/questions/{id}/choices/{choiceID}
func (h *AdminHandler) DeleteChoice(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	questionID := r.PathValue("id")
	choiceID := r.PathValue("choiceID")
	err := h.store.DeleteChoice(r.Context(), questionID, choiceID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Choice not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete choice")
		return
	}

	slog.Info("choice deleted", "question_id", questionID, "choice_id", choiceID)
	w.WriteHeader(http.StatusNoContent)
}
