// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/auth"
	"github.com/danielhkuo/ku-polls/cliparse"
	"github.com/danielhkuo/ku-polls/live"
	"github.com/danielhkuo/ku-polls/middleware"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
	"github.com/danielhkuo/ku-polls/testutil"
	"github.com/danielhkuo/ku-polls/voting"
	"github.com/danielhkuo/ku-polls/web"
)

// testEnv holds handlers wired the way the router wires them
type testEnv struct {
	db       *sql.DB
	cfg      cliparse.Config
	store    *store.Store
	auditor  *testutil.Auditor
	sessions *auth.SessionManager
	hub      *live.Hub
	voting   *VotingHandler
	results  *ResultsHandler
	accounts *AccountHandler
	admin    *AdminHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pages, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	env := &testEnv{
		db:      testutil.SetupTestDB(t),
		cfg:     testutil.GetTestConfig(),
		auditor: &testutil.Auditor{},
		hub:     live.NewHub(),
	}
	env.store = store.New(env.db)
	env.sessions = auth.NewSessionManager(env.cfg.SessionSecret, env.cfg.SessionTTL).WithAccounts(env.store)
	recorder := voting.NewRecorder(env.store, env.auditor)

	env.voting = NewVotingHandler(env.store, recorder, env.hub, pages)
	env.results = NewResultsHandler(env.store, env.hub, pages)
	env.accounts = NewAccountHandler(env.store, env.sessions, env.auditor, pages)
	env.admin = NewAdminHandler(env.store, env.cfg)
	return env
}

// serve runs h behind the session middleware
func (env *testEnv) serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	middleware.WithSession(env.sessions, h).ServeHTTP(w, req)
	return w
}

// vote posts a choice the way the router does, login check included
func (env *testEnv) vote(questionID, choiceID string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return env.postVote(questionID, url.Values{"choice": {choiceID}}, cookies...)
}

func (env *testEnv) postVote(questionID string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	path := "/polls/" + questionID + "/vote/"
	req := testutil.MakeFormRequest("POST", path, form, cookies...)
	req.SetPathValue("id", questionID)
	return env.serve(middleware.LoginRequired(LoginURL, env.voting.Vote), req)
}

func (env *testEnv) voteCount(t *testing.T, questionID, choiceID string) int {
	t.Helper()
	choice, err := env.store.GetChoice(context.Background(), questionID, choiceID)
	if err != nil {
		t.Fatalf("Failed to load choice: %v", err)
	}
	return choice.VoteCount
}

type votingFixture struct {
	questionID string
	choice1    string
	choice2    string
	user       models.User
	cookie     *http.Cookie
}

func setupVoting(t *testing.T, env *testEnv) votingFixture {
	t.Helper()

	now := time.Now()
	questionID := testutil.CreateTestQuestion(t, env.db, "question 1", now.Add(-time.Minute), now.Add(24*time.Hour))
	user := testutil.CreateTestUser(t, env.db, "test_username", "test_password")
	return votingFixture{
		questionID: questionID,
		choice1:    testutil.AddTestChoice(t, env.db, questionID, "choice 1"),
		choice2:    testutil.AddTestChoice(t, env.db, questionID, "choice 2"),
		user:       user,
		cookie:     testutil.SessionCookie(t, env.cfg, user),
	}
}

func TestVoteWithoutLoggingIn(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	env.vote(f.questionID, f.choice1)

	if got := env.voteCount(t, f.questionID, f.choice1); got != 0 {
		t.Errorf("Expected anonymous vote not to count, got %d", got)
	}
}

func TestVoteRedirectsToLoginWhenNotAuthenticated(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	w := env.vote(f.questionID, f.choice1)

	testutil.AssertStatus(t, w, http.StatusFound)
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Invalid Location header: %v", err)
	}
	if loc.Path != LoginURL {
		t.Errorf("Expected redirect to %s, got %s", LoginURL, loc.Path)
	}
	if next := loc.Query().Get("next"); next != "/polls/"+f.questionID+"/vote/" {
		t.Errorf("Expected next to resume at the vote URL, got %q", next)
	}
}

func TestVote(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	w := env.vote(f.questionID, f.choice1, f.cookie)

	testutil.AssertRedirect(t, w, "/polls/"+f.questionID+"/results/")
	if got := env.voteCount(t, f.questionID, f.choice1); got != 1 {
		t.Errorf("Expected 1 vote, got %d", got)
	}
	if events := env.auditor.Events(models.EventVote); len(events) != 1 {
		t.Errorf("Expected 1 audit event, got %d", len(events))
	}
}

func TestVoteSameChoice(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	for i := 0; i < 5; i++ {
		w := env.vote(f.questionID, f.choice1, f.cookie)
		testutil.AssertStatus(t, w, http.StatusFound)
	}

	if got := env.voteCount(t, f.questionID, f.choice1); got != 1 {
		t.Errorf("Expected repeated votes to count once, got %d", got)
	}
}

func TestVoteWithInvalidChoice(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	tests := []struct {
		name string
		form url.Values
	}{
		{"unknown choice", url.Values{"choice": {"0"}}},
		{"empty choice", url.Values{"choice": {""}}},
		{"no choice field", url.Values{}},
		{"other fields only", url.Values{"csrf": {"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postVote(f.questionID, tt.form, f.cookie)

			testutil.AssertStatus(t, w, http.StatusOK)
			if !strings.Contains(w.Body.String(), html.EscapeString(models.MsgNoChoice)) {
				t.Errorf("expected error message in body")
			}
			if !strings.Contains(w.Body.String(), "choice 1") {
				t.Errorf("expected the detail page to be re-rendered")
			}
		})
	}

	n, err := env.store.CountVotes(context.Background(), f.user.ID, f.questionID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Expected no vote stored, got %d", n)
	}
}

func TestChangeVote(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	env.vote(f.questionID, f.choice1, f.cookie)
	if got := env.voteCount(t, f.questionID, f.choice1); got != 1 {
		t.Fatalf("Expected choice 1 to have 1 vote, got %d", got)
	}

	env.vote(f.questionID, f.choice2, f.cookie)
	if got := env.voteCount(t, f.questionID, f.choice2); got != 1 {
		t.Errorf("Expected choice 2 to have 1 vote, got %d", got)
	}
	if got := env.voteCount(t, f.questionID, f.choice1); got != 0 {
		t.Errorf("Expected choice 1 to have 0 votes, got %d", got)
	}
}

func TestVoteOnClosedQuestion(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	now := time.Now()
	closedID := testutil.CreateTestQuestion(t, env.db, "closed", now.Add(-48*time.Hour), now.Add(-time.Hour))
	choiceID := testutil.AddTestChoice(t, env.db, closedID, "late")

	w := env.vote(closedID, choiceID, f.cookie)

	testutil.AssertStatus(t, w, http.StatusForbidden)
	if !strings.Contains(w.Body.String(), models.MsgVotingClosed) {
		t.Error("Expected voting closed message")
	}
	if got := env.voteCount(t, closedID, choiceID); got != 0 {
		t.Errorf("Expected no vote on closed question, got %d", got)
	}
}

func TestVoteOnMissingOrUnpublishedQuestion(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	now := time.Now()
	futureID := testutil.CreateTestQuestion(t, env.db, "future", now.Add(time.Hour), now.Add(48*time.Hour))
	futureChoice := testutil.AddTestChoice(t, env.db, futureID, "soon")

	tests := []struct {
		name       string
		questionID string
		choiceID   string
	}{
		{"missing question", "does-not-exist", f.choice1},
		{"unpublished question", futureID, futureChoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.vote(tt.questionID, tt.choiceID, f.cookie)
			testutil.AssertStatus(t, w, http.StatusNotFound)
		})
	}
}

func TestVoteRedirect(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/polls/q1/vote/", nil)
	req.SetPathValue("id", "q1")
	w := env.serve(env.voting.VoteRedirect, req)

	testutil.AssertRedirect(t, w, "/polls/q1/")
}

func TestDetail(t *testing.T) {
	env := newTestEnv(t)
	f := setupVoting(t, env)

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/"+f.questionID+"/", nil)
		req.SetPathValue("id", f.questionID)
		w := env.serve(env.voting.Detail, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		if !strings.Contains(w.Body.String(), "question 1") {
			t.Error("Expected question text on the detail page")
		}
		if strings.Contains(w.Body.String(), "checked") {
			t.Error("Anonymous visitors have no pre-selected choice")
		}
	})

	t.Run("previous vote is pre-selected", func(t *testing.T) {
		env.vote(f.questionID, f.choice2, f.cookie)

		req := httptest.NewRequest("GET", "/polls/"+f.questionID+"/", nil)
		req.SetPathValue("id", f.questionID)
		req.AddCookie(f.cookie)
		w := env.serve(env.voting.Detail, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		if !strings.Contains(w.Body.String(), `value="`+f.choice2+`" checked`) {
			t.Error("Expected the previous choice to be checked")
		}
	})

	t.Run("unpublished question", func(t *testing.T) {
		now := time.Now()
		futureID := testutil.CreateTestQuestion(t, env.db, "future", now.Add(time.Hour), now.Add(48*time.Hour))

		req := httptest.NewRequest("GET", "/polls/"+futureID+"/", nil)
		req.SetPathValue("id", futureID)
		w := env.serve(env.voting.Detail, req)

		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}
