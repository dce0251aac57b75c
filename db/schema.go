// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open connects to the configured database and verifies the connection.
// SQLite connections get foreign keys and a busy timeout, and are limited to
// a single open connection since SQLite allows one writer at a time.
func Open(dbType, url string) (*sql.DB, error) {
	var conn *sql.DB
	var err error

	switch dbType {
	case TypeSQLite:
		conn, err = sql.Open("sqlite", sqliteDSN(url))
		if err == nil {
			conn.SetMaxOpenConns(1)
		}
	case TypePostgres:
		conn, err = sql.Open("postgres", url)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

func sqliteDSN(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

const schema = `
-- Accounts
CREATE TABLE IF NOT EXISTS account (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Questions
CREATE TABLE IF NOT EXISTS question (
    id TEXT PRIMARY KEY,
    question_text TEXT NOT NULL,
    pub_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_question_pub_date ON question(pub_date);

-- Choices
CREATE TABLE IF NOT EXISTS choice (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES question(id) ON DELETE CASCADE,
    choice_text TEXT NOT NULL,
    UNIQUE (id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_choice_question_id ON choice(question_id);

-- Votes: one row per (user, question), choice_id is reassigned on revote
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES account(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL REFERENCES question(id) ON DELETE CASCADE,
    choice_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, question_id),
    FOREIGN KEY (choice_id, question_id) REFERENCES choice(id, question_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_vote_choice_id ON vote(choice_id)
`
