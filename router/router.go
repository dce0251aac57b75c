// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/cliparse"
	"github.com/danielhkuo/ku-polls/handlers"
	"github.com/danielhkuo/ku-polls/live"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/store"
	"github.com/danielhkuo/ku-polls/voting"
	"github.com/danielhkuo/ku-polls/web"
)

// NewRouter wires the handlers onto a ServeMux. Every request passes
// through the session middleware so handlers can see the logged-in user.
func NewRouter(db *sql.DB, cfg cliparse.Config, auditor voting.Auditor) (http.Handler, error) {
	pages, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	st := store.New(db)
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL).WithAccounts(st)
	hub := live.NewHub()
	recorder := voting.NewRecorder(st, auditor)

	// Initialize handlers
	votingHandler := handlers.NewVotingHandler(st, recorder, hub, pages)
	resultsHandler := handlers.NewResultsHandler(st, hub, pages)
	accountHandler := handlers.NewAccountHandler(st, sessions, auditor, pages)
	adminHandler := handlers.NewAdminHandler(st, cfg)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll pages
	mux.HandleFunc("GET /polls/{$}", middleware.WithLogging(resultsHandler.Index))
	mux.HandleFunc("GET /polls/{id}/{$}", middleware.WithLogging(votingHandler.Detail))
	mux.HandleFunc("GET /polls/{id}/results/{$}", middleware.WithLogging(resultsHandler.Results))
	mux.HandleFunc("GET /polls/{id}/live", middleware.WithLogging(resultsHandler.Live))

	// Voting (login required)
	mux.HandleFunc("POST /polls/{id}/vote/{$}", middleware.WithLogging(
		middleware.LoginRequired(handlers.LoginURL, votingHandler.Vote)))
	mux.HandleFunc("GET /polls/{id}/vote/{$}", middleware.WithLogging(votingHandler.VoteRedirect))

	// JSON results (cross-origin readable)
	mux.HandleFunc("GET /api/questions/{id}/results", middleware.WithLogging(middleware.CORS(resultsHandler.ResultsJSON)))
	mux.HandleFunc("OPTIONS /api/questions/{id}/results", middleware.CORS(resultsHandler.ResultsJSON))

	// Accounts
	mux.HandleFunc("GET /accounts/login/{$}", middleware.WithLogging(accountHandler.LoginForm))
	mux.HandleFunc("POST /accounts/login/{$}", middleware.WithLogging(accountHandler.Login))
	mux.HandleFunc("POST /accounts/logout/{$}", middleware.WithLogging(accountHandler.Logout))
	mux.HandleFunc("GET /signup/{$}", middleware.WithLogging(accountHandler.SignupForm))
	mux.HandleFunc("POST /signup/{$}", middleware.WithLogging(accountHandler.Signup))

	// Question management (admin key)
	mux.HandleFunc("POST /admin/questions", middleware.WithLogging(adminHandler.CreateQuestion))
	mux.HandleFunc("POST /admin/questions/{id}/choices", middleware.WithLogging(adminHandler.AddChoice))
	mux.HandleFunc("DELETE /admin/questions/{id}", middleware.WithLogging(adminHandler.DeleteQuestion))
	mux.HandleFunc("DELETE /admin/questions/{id}/choices/{choiceID}", middleware.WithLogging(adminHandler.DeleteChoice))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/polls/", http.StatusFound)
	})

	return middleware.WithSession(sessions, mux), nil
}
