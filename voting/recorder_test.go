// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
	"github.com/danielhkuo/ku-polls/testutil"
)

func setupRecorder(t *testing.T) (*Recorder, *store.Store, *testutil.Auditor, string, []string, models.User) {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	s := store.New(conn)
	auditor := &testutil.Auditor{}

	questionID := testutil.CreateOpenQuestion(t, conn, "Best editor?")
	choices := []string{
		testutil.AddTestChoice(t, conn, questionID, "vim"),
		testutil.AddTestChoice(t, conn, questionID, "emacs"),
	}
	user := testutil.CreateTestUser(t, conn, "alice", "correct-horse")

	return NewRecorder(s, auditor), s, auditor, questionID, choices, user
}

func TestRecordVote_FirstVote(t *testing.T) {
	rec, s, auditor, questionID, choices, user := setupRecorder(t)

	receipt, err := rec.RecordVote(context.Background(), user, questionID, choices[0])
	if err != nil {
		t.Fatalf("RecordVote() error = %v", err)
	}
	if receipt.Replaced {
		t.Error("First vote should not be reported as a replacement")
	}
	if got := receipt.ResultsPath(); got != "/polls/"+questionID+"/results/" {
		t.Errorf("Unexpected results path %q", got)
	}

	vote, err := s.GetVote(context.Background(), user.ID, questionID)
	if err != nil {
		t.Fatalf("GetVote() error = %v", err)
	}
	if vote.ChoiceID != choices[0] {
		t.Errorf("Expected choice %s, got %s", choices[0], vote.ChoiceID)
	}

	events := auditor.Events(models.EventVote)
	if len(events) != 1 {
		t.Fatalf("Expected 1 vote audit event, got %d", len(events))
	}
	if events[0].Username != "alice" || events[0].ChoiceText != "vim" || events[0].QuestionText != "Best editor?" {
		t.Errorf("Unexpected audit event %+v", events[0])
	}
}

func TestRecordVote_ChangeVote(t *testing.T) {
	rec, s, _, questionID, choices, user := setupRecorder(t)
	ctx := context.Background()

	if _, err := rec.RecordVote(ctx, user, questionID, choices[0]); err != nil {
		t.Fatal(err)
	}
	receipt, err := rec.RecordVote(ctx, user, questionID, choices[1])
	if err != nil {
		t.Fatalf("RecordVote() error = %v", err)
	}
	if !receipt.Replaced || receipt.PreviousChoiceID != choices[0] {
		t.Errorf("Expected replacement of %s, got %+v", choices[0], receipt)
	}

	listed, err := s.ListChoices(ctx, questionID)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range listed {
		want := 0
		if c.ID == choices[1] {
			want = 1
		}
		if c.VoteCount != want {
			t.Errorf("Choice %s: expected %d votes, got %d", c.Text, want, c.VoteCount)
		}
	}
}

func TestRecordVote_Rejections(t *testing.T) {
	rec, s, auditor, questionID, choices, user := setupRecorder(t)
	ctx := context.Background()

	otherQuestion, err := s.CreateQuestion(ctx, "Other", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := s.AddChoice(ctx, otherQuestion.ID, "foreign")
	if err != nil {
		t.Fatal(err)
	}
	closed, err := s.CreateQuestion(ctx, "Closed", time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	closedChoice, err := s.AddChoice(ctx, closed.ID, "late")
	if err != nil {
		t.Fatal(err)
	}
	future, err := s.CreateQuestion(ctx, "Future", time.Now().Add(time.Hour), time.Now().Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		user       models.User
		questionID string
		choiceID   string
		wantErr    error
	}{
		{"anonymous", models.User{}, questionID, choices[0], ErrAuthenticationRequired},
		{"account no longer exists", models.User{ID: "ghost", Username: "ghost"}, questionID, choices[0], ErrAuthenticationRequired},
		{"unknown question", user, "missing", choices[0], ErrNotFound},
		{"unpublished question", user, future.ID, "", ErrNotFound},
		{"closed question", user, closed.ID, closedChoice.ID, ErrVotingClosed},
		{"no choice", user, questionID, "", ErrInvalidChoice},
		{"unknown choice", user, questionID, "0", ErrInvalidChoice},
		{"choice of another question", user, questionID, foreign.ID, ErrInvalidChoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rec.RecordVote(ctx, tt.user, tt.questionID, tt.choiceID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordVote() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if n, err := s.CountVotes(ctx, user.ID, questionID); err != nil || n != 0 {
		t.Errorf("Expected no votes after rejections, got %d (err %v)", n, err)
	}
	if events := auditor.Events(models.EventVote); len(events) != 0 {
		t.Errorf("Rejected votes should not be audited, got %d events", len(events))
	}
}

func TestRecordVote_InvalidChoiceMessage(t *testing.T) {
	if ErrInvalidChoice.Error() != "You didn't select a choice." {
		t.Errorf("Unexpected message %q", ErrInvalidChoice.Error())
	}
}

func TestRecordVote_ClosedBeforeChoiceValidation(t *testing.T) {
	rec, s, _, _, _, user := setupRecorder(t)
	ctx := context.Background()

	closed, err := s.CreateQuestion(ctx, "Closed", time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	// A closed question reports closed even when no choice was submitted
	_, err = rec.RecordVote(ctx, user, closed.ID, "")
	if !errors.Is(err, ErrVotingClosed) {
		t.Errorf("Expected ErrVotingClosed, got %v", err)
	}
}
