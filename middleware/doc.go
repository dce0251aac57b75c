// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# CORS Middleware

Allow cross-origin reads of the JSON API:

	mux.HandleFunc("GET /api/questions/{id}/results", middleware.CORS(h.ResultsJSON))

Allows methods GET and OPTIONS with the Content-Type header.

# Sessions

WithSession resolves the logged-in user once per request and stores it in
the context; UserFrom reads it back. LoginRequired sends anonymous callers
to the login page with a "next" parameter pointing back at the request:

	mux.HandleFunc("POST /polls/{id}/vote/{$}", middleware.LoginRequired("/accounts/login/", h.Vote))

SafeNext accepts only local paths as post-login targets.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.CreateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Recorded with login and logout audit events.
*/
package middleware
