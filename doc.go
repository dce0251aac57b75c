// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the KU Polls server.

KU Polls publishes questions with a fixed voting window. Logged-in users
pick one choice per question and may change it while the question is open;
each user holds at most one vote per question.

# Starting the Server

Configuration comes from flags, the environment, or a .env file:

	SESSION_SECRET=... ADMIN_KEY=... DATABASE_URL=file:polls.db go run .

Or with flags:

	go run . -p 8000 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - SESSION_SECRET (-session-secret): HMAC key for session tokens
  - ADMIN_KEY (-admin-key): key for the question management API

Optional settings:

  - PORT (-p): Server port (default: 8000)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SESSION_TTL (-session-ttl): session lifetime (default: 24h)
  - REDIS_ADDR (-redis): keep the audit trail in a capped Redis list
  - AMQP_URL (-amqp), AUDIT_QUEUE (-audit-queue): publish audit events

# Architecture

	main.go      - setup, audit sinks, graceful shutdown
	router/      - route table and session middleware
	handlers/    - pages, vote submission, accounts, admin API
	voting/      - vote validation and recording
	store/       - SQL persistence
	audit/       - asynchronous audit trail
	live/        - websocket push of live tallies
	web/         - embedded HTML templates
*/
package main
