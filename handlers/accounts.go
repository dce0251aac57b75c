// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/ku-polls/audit"
	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
	"github.com/danielhkuo/ku-polls/voting"
	"github.com/danielhkuo/ku-polls/web"
)

const (
	msgBadLogin      = "Please enter a correct username and password."
	minPasswordLen   = 8
	minUsernameLen   = 2
	maxUsernameLen   = 150
	afterLoginTarget = "/polls/"
)

type AccountHandler struct {
	store    *store.Store
	sessions *auth.SessionManager
	auditor  voting.Auditor
	pages    *web.Renderer
}

func NewAccountHandler(s *store.Store, sessions *auth.SessionManager, auditor voting.Auditor, pages *web.Renderer) *AccountHandler {
	return &AccountHandler{store: s, sessions: sessions, auditor: auditor, pages: pages}
}

// LoginForm handles GET /accounts/login/
func (h *AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, web.PageLogin, web.LoginPage{
		Next: middleware.SafeNext(r.URL.Query().Get("next"), ""),
	})
}

// Login handles POST /accounts/login/
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	next := middleware.SafeNext(r.PostFormValue("next"), "")

	user, err := h.store.GetUserByUsername(r.Context(), username)
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, password)
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Error("failed to look up account", "error", err)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		h.record(r, models.EventLoginFailed, models.User{Username: username})
		h.pages.Render(w, http.StatusOK, web.PageLogin, web.LoginPage{
			Next:         next,
			Username:     username,
			ErrorMessage: msgBadLogin,
		})
		return
	}

	if err := h.sessions.Login(w, user); err != nil {
		slog.Error("failed to start session", "error", err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	h.record(r, models.EventLogin, user)

	http.Redirect(w, r, middleware.SafeNext(next, afterLoginTarget), http.StatusFound)
}

// Logout handles POST /accounts/logout/
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.UserFrom(r.Context()); ok {
		h.record(r, models.EventLogout, user)
	}
	h.sessions.Logout(w)
	http.Redirect(w, r, afterLoginTarget, http.StatusFound)
}

// SignupForm handles GET /signup/
func (h *AccountHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, web.PageSignup, web.SignupPage{})
}

// Signup handles POST /signup/
// Creates the account and logs it in straight away
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password1 := r.PostFormValue("password1")
	password2 := r.PostFormValue("password2")

	if problems := validateSignup(username, password1, password2); len(problems) > 0 {
		h.pages.Render(w, http.StatusOK, web.PageSignup, web.SignupPage{Username: username, Errors: problems})
		return
	}

	hash, err := auth.HashPassword(password1)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	user, err := h.store.CreateUser(r.Context(), username, hash)
	if errors.Is(err, store.ErrConflict) {
		h.pages.Render(w, http.StatusOK, web.PageSignup, web.SignupPage{
			Username: username,
			Errors:   []string{"A user with that username already exists."},
		})
		return
	}
	if err != nil {
		slog.Error("failed to create account", "error", err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Login(w, user); err != nil {
		slog.Error("failed to start session", "error", err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	h.record(r, models.EventSignup, user)

	http.Redirect(w, r, afterLoginTarget, http.StatusFound)
}

func validateSignup(username, password1, password2 string) []string {
	var problems []string
	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		problems = append(problems, "Username is required.")
	case n < minUsernameLen || n > maxUsernameLen:
		problems = append(problems, "Username must be between 2 and 150 characters.")
	}
	if password1 != password2 {
		problems = append(problems, "The two password fields didn't match.")
	}
	if utf8.RuneCountInString(password1) < minPasswordLen {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	return problems
}

func (h *AccountHandler) record(r *http.Request, kind string, user models.User) {
	if h.auditor == nil {
		return
	}
	h.auditor.Record(audit.Event{
		Kind:     kind,
		UserID:   user.ID,
		Username: user.Username,
		IP:       middleware.GetClientIP(r),
		Time:     time.Now(),
	})
}
