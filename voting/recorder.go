// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/ku-polls/audit"
	"github.com/danielhkuo/ku-polls/models"
	"github.com/danielhkuo/ku-polls/store"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrNotFound               = errors.New("question not found")
	ErrInvalidChoice          = errors.New(models.MsgNoChoice)
	ErrVotingClosed           = errors.New(models.MsgVotingClosed)
)

// Store is the persistence the recorder needs
type Store interface {
	GetQuestion(ctx context.Context, id string) (models.Question, error)
	GetChoice(ctx context.Context, questionID, choiceID string) (models.Choice, error)
	UpsertVote(ctx context.Context, userID, questionID, choiceID string) (models.Vote, string, error)
}

// Auditor receives the audit line for each recorded vote.
// Record must not block.
type Auditor interface {
	Record(e audit.Event)
}

// Receipt describes a successfully recorded vote
type Receipt struct {
	Vote             models.Vote
	Question         models.Question
	Choice           models.Choice
	Replaced         bool
	PreviousChoiceID string
}

// ResultsPath is where the caller should be sent after voting
func (r Receipt) ResultsPath() string {
	return ResultsPath(r.Question.ID)
}

func ResultsPath(questionID string) string {
	return "/polls/" + questionID + "/results/"
}

type Recorder struct {
	store   Store
	auditor Auditor
	now     func() time.Time
}

func NewRecorder(s Store, a Auditor) *Recorder {
	return &Recorder{store: s, auditor: a, now: time.Now}
}

// RecordVote validates the submitted choice and creates or replaces the
// user's single vote for the question. choiceID is empty when the form
// field was absent.
func (r *Recorder) RecordVote(ctx context.Context, user models.User, questionID, choiceID string) (Receipt, error) {
	if user.ID == "" {
		return Receipt{}, ErrAuthenticationRequired
	}

	question, err := r.store.GetQuestion(ctx, questionID)
	if errors.Is(err, store.ErrNotFound) {
		return Receipt{}, ErrNotFound
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to load question: %w", err)
	}

	now := r.now()
	if !question.IsPublished(now) {
		return Receipt{}, ErrNotFound
	}
	if !question.CanVote(now) {
		return Receipt{}, ErrVotingClosed
	}

	if choiceID == "" {
		return Receipt{}, ErrInvalidChoice
	}
	choice, err := r.store.GetChoice(ctx, question.ID, choiceID)
	if errors.Is(err, store.ErrNotFound) {
		return Receipt{}, ErrInvalidChoice
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to load choice: %w", err)
	}

	vote, previous, err := r.store.UpsertVote(ctx, user.ID, question.ID, choice.ID)
	if errors.Is(err, store.ErrUnknownAccount) {
		return Receipt{}, ErrAuthenticationRequired
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to record vote: %w", err)
	}

	if r.auditor != nil {
		r.auditor.Record(audit.Event{
			Kind:         models.EventVote,
			UserID:       user.ID,
			Username:     user.Username,
			QuestionID:   question.ID,
			QuestionText: question.Text,
			ChoiceID:     choice.ID,
			ChoiceText:   choice.Text,
			Time:         now,
		})
	}

	return Receipt{
		Vote:             vote,
		Question:         question,
		Choice:           choice,
		Replaced:         previous != "",
		PreviousChoiceID: previous,
	}, nil
}
