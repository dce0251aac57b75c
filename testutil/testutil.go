// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/audit"
	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/cliparse"
	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
)

// SetupTestDB creates a fresh SQLite database with the full schema.
// The file lives in the test's temp dir and is closed on cleanup.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   "file::memory:",
		DatabaseType:  db.TypeSQLite,
		SessionSecret: "test-session-secret",
		SessionTTL:    time.Hour,
		AdminKey:      "test-admin-key",
		AuditQueue:    "poll-audit",
	}
}

// CreateTestQuestion creates a question published at pub that closes at end
func CreateTestQuestion(t *testing.T, conn *sql.DB, text string, pub, end time.Time) string {
	t.Helper()

	q, err := store.New(conn).CreateQuestion(context.Background(), text, pub, end)
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}
	return q.ID
}

// CreateOpenQuestion creates a question published an hour ago that closes tomorrow
func CreateOpenQuestion(t *testing.T, conn *sql.DB, text string) string {
	t.Helper()
	now := time.Now()
	return CreateTestQuestion(t, conn, text, now.Add(-time.Hour), now.Add(24*time.Hour))
}

// AddTestChoice adds a choice to a question and returns the choice ID
func AddTestChoice(t *testing.T, conn *sql.DB, questionID, text string) string {
	t.Helper()

	c, err := store.New(conn).AddChoice(context.Background(), questionID, text)
	if err != nil {
		t.Fatalf("Failed to create test choice: %v", err)
	}
	return c.ID
}

// CreateTestUser registers an account with the given password
func CreateTestUser(t *testing.T, conn *sql.DB, username, password string) models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user, err := store.New(conn).CreateUser(context.Background(), username, hash)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// SessionCookie returns a valid session cookie for the user
func SessionCookie(t *testing.T, cfg cliparse.Config, user models.User) *http.Cookie {
	t.Helper()

	token, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL).Issue(user)
	if err != nil {
		t.Fatalf("Failed to issue session token: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// MakeFormRequest creates a form-encoded test request carrying the cookies
func MakeFormRequest(method, path string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertRedirect checks for a 302 to the expected location
func AssertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	AssertStatus(t, w, http.StatusFound)
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Expected redirect to %q, got %q", location, got)
	}
}

// Auditor collects audit events in memory
type Auditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *Auditor) Record(e audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

// Events returns the recorded events of the given kind
func (a *Auditor) Events(kind string) []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audit.Event
	for _, e := range a.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
