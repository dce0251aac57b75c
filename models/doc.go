// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request and response types.

# Domain Types

  - Question: text with a publish time and an end time
  - Choice: an answer to a question; VoteCount is aggregated from votes
  - Vote: a user's single vote on a question
  - User: an account

A question is published once its publish time has passed and accepts votes
until its end time.

# API Types

  - CreateQuestionRequest / CreateQuestionResponse
  - AddChoiceRequest / AddChoiceResponse
  - ResultsResponse: per-choice tallies, also pushed over the live websocket
  - ErrorResponse: error, message
*/
package models
