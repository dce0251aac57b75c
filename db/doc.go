// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens database connections and creates the schema.

# Connections

Open picks the driver from the configured database type:

	conn, err := db.Open(db.TypeSQLite, "file:polls.db")
	conn, err := db.Open(db.TypePostgres, "postgres://...")

SQLite uses modernc.org/sqlite (pure Go) with foreign keys enabled;
PostgreSQL uses github.com/lib/pq.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same statements run on both SQLite and PostgreSQL.

# Tables

  - account: registered users (bcrypt password hashes)
  - question: poll questions with publish and end dates
  - choice: options under a question
  - vote: a user's current selection for a question

# Relationships

	question 1──* choice
	choice   1──* vote
	account  1──* vote

All foreign keys use ON DELETE CASCADE. The vote table carries question_id
next to choice_id so that UNIQUE (user_id, question_id) can hold the
one-vote-per-question rule; the composite key (choice_id, question_id) keeps
the two columns consistent.
*/
package db
