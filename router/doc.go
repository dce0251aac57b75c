// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for KU Polls.

# Route Registration

NewRouter builds the store, session manager, live hub and handlers, and
returns the mux wrapped in the session middleware:

	mux, err := router.NewRouter(db, cfg, auditLog)

# Endpoints

Health:

	GET /health

Pages:

	GET  /polls/               - Latest published questions
	GET  /polls/{id}/          - Question detail
	POST /polls/{id}/vote/     - Vote (login required)
	GET  /polls/{id}/results/  - Results
	GET  /polls/{id}/live      - Live results (websocket)

JSON:

	GET /api/questions/{id}/results

Accounts:

	GET|POST /accounts/login/
	POST     /accounts/logout/
	GET|POST /signup/

Question management (requires X-Admin-Key):

	POST   /admin/questions
	POST   /admin/questions/{id}/choices
	DELETE /admin/questions/{id}
	DELETE /admin/questions/{id}/choices/{choiceID}
*/
package router
