// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for KU Polls.

# Handler Types

  - VotingHandler: question detail and vote submission
  - ResultsHandler: index, results page, JSON results, live results
  - AccountHandler: signup, login, logout
  - AdminHandler: question and choice management

Handlers are created via constructor functions:

	votingHandler := handlers.NewVotingHandler(store, recorder, hub, pages)

# Voting Flow

	GET  /polls/{id}/       → Detail (pre-selects the caller's current vote)
	POST /polls/{id}/vote/  → Vote (login required)
	GET  /polls/{id}/vote/  → VoteRedirect (back to detail after login)

A successful vote redirects to the results page. A missing or unknown
choice re-renders the detail page with "You didn't select a choice.".
A question past its end time answers 403, unknown or unpublished ones 404.

# Admin API

Requests carry the X-Admin-Key header:

	POST   /admin/questions                         → CreateQuestion
	POST   /admin/questions/{id}/choices            → AddChoice
	DELETE /admin/questions/{id}                    → DeleteQuestion
	DELETE /admin/questions/{id}/choices/{choiceID} → DeleteChoice
*/
package handlers
