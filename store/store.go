// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/ku-polls/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrUnknownAccount = errors.New("account does not exist")
)

// Store persists questions, choices, votes and accounts.
// Vote counts are always aggregated from the vote table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// translateError maps driver errors onto the package sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch code := liteErr.Code(); {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE"):
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}

	return err
}

// Questions

func (s *Store) CreateQuestion(ctx context.Context, text string, publishTime, endTime time.Time) (models.Question, error) {
	q := models.Question{
		ID:          uuid.NewString(),
		Text:        text,
		PublishTime: publishTime.UTC(),
		EndTime:     endTime.UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question (id, question_text, pub_date, end_date)
		VALUES ($1, $2, $3, $4)
	`, q.ID, q.Text, q.PublishTime, q.EndTime)
	if err != nil {
		return models.Question{}, fmt.Errorf("failed to insert question: %w", translateError(err))
	}

	return q, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (models.Question, error) {
	var q models.Question
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_text, pub_date, end_date
		FROM question
		WHERE id = $1
	`, id).Scan(&q.ID, &q.Text, &q.PublishTime, &q.EndTime)
	if err != nil {
		return models.Question{}, translateError(err)
	}
	return q, nil
}

// ListPublished returns up to limit questions published at or before now,
// newest first.
func (s *Store) ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_text, pub_date, end_date
		FROM question
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.PublishTime, &q.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if q.IsPublished(now) {
			questions = append(questions, q)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	// Sort in Go: SQLite stores timestamps as text
	slices.SortFunc(questions, func(a, b models.Question) int {
		return b.PublishTime.Compare(a.PublishTime)
	})
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}

	return questions, nil
}

// DeleteQuestion removes a question with its choices and votes
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM question WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return requireAffected(res)
}

// Choices

func (s *Store) AddChoice(ctx context.Context, questionID, text string) (models.Choice, error) {
	c := models.Choice{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		Text:       text,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO choice (id, question_id, choice_text)
		VALUES ($1, $2, $3)
	`, c.ID, c.QuestionID, c.Text)
	if err != nil {
		return models.Choice{}, fmt.Errorf("failed to insert choice: %w", translateError(err))
	}

	return c, nil
}

// GetChoice resolves choiceID among the choices of questionID only
func (s *Store) GetChoice(ctx context.Context, questionID, choiceID string) (models.Choice, error) {
	var c models.Choice
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.question_id, c.choice_text,
		       (SELECT COUNT(*) FROM vote v WHERE v.choice_id = c.id)
		FROM choice c
		WHERE c.id = $1 AND c.question_id = $2
	`, choiceID, questionID).Scan(&c.ID, &c.QuestionID, &c.Text, &c.VoteCount)
	if err != nil {
		return models.Choice{}, translateError(err)
	}
	return c, nil
}

// ListChoices returns the question's choices with their aggregated vote counts
func (s *Store) ListChoices(ctx context.Context, questionID string) ([]models.Choice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.question_id, c.choice_text, COUNT(v.id)
		FROM choice c
		LEFT JOIN vote v ON v.choice_id = c.id
		WHERE c.question_id = $1
		GROUP BY c.id, c.question_id, c.choice_text
		ORDER BY c.choice_text, c.id
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query choices: %w", err)
	}
	defer rows.Close()

	choices := []models.Choice{}
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read choices: %w", err)
	}

	return choices, nil
}

// DeleteChoice removes a choice of questionID along with the votes on it
func (s *Store) DeleteChoice(ctx context.Context, questionID, choiceID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM choice WHERE id = $1 AND question_id = $2
	`, choiceID, questionID)
	if err != nil {
		return fmt.Errorf("failed to delete choice: %w", err)
	}
	return requireAffected(res)
}

// Votes

// GetVote returns the user's vote for the question
func (s *Store) GetVote(ctx context.Context, userID, questionID string) (models.Vote, error) {
	var v models.Vote
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, question_id, choice_id, created_at, updated_at
		FROM vote
		WHERE user_id = $1 AND question_id = $2
	`, userID, questionID).Scan(&v.ID, &v.UserID, &v.QuestionID, &v.ChoiceID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return models.Vote{}, translateError(err)
	}
	return v, nil
}

// UpsertVote records choiceID as the user's single vote for questionID.
// The lookup reports whether an earlier vote was replaced; the insert itself
// relies on UNIQUE (user_id, question_id) so a concurrent submission turns
// into an update instead of a second row.
func (s *Store) UpsertVote(ctx context.Context, userID, questionID, choiceID string) (vote models.Vote, previousChoiceID string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vote{}, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM account WHERE id = $1`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, "", ErrUnknownAccount
	}
	if err != nil {
		return models.Vote{}, "", fmt.Errorf("failed to look up account: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT choice_id FROM vote WHERE user_id = $1 AND question_id = $2
	`, userID, questionID).Scan(&previousChoiceID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, "", fmt.Errorf("failed to look up vote: %w", err)
	}

	now := time.Now().UTC()
	vote = models.Vote{
		UserID:     userID,
		QuestionID: questionID,
		ChoiceID:   choiceID,
		UpdatedAt:  now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, user_id, question_id, choice_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			choice_id = EXCLUDED.choice_id,
			updated_at = EXCLUDED.updated_at
	`, uuid.NewString(), userID, questionID, choiceID, now)
	if err != nil {
		return models.Vote{}, "", fmt.Errorf("failed to upsert vote: %w", translateError(err))
	}

	err = tx.QueryRowContext(ctx, `
		SELECT id, created_at FROM vote WHERE user_id = $1 AND question_id = $2
	`, userID, questionID).Scan(&vote.ID, &vote.CreatedAt)
	if err != nil {
		return models.Vote{}, "", fmt.Errorf("failed to read back vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Vote{}, "", fmt.Errorf("failed to commit vote: %w", err)
	}

	return vote, previousChoiceID, nil
}

// CountVotes returns how many vote rows exist for the user and question
func (s *Store) CountVotes(ctx context.Context, userID, questionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote WHERE user_id = $1 AND question_id = $2
	`, userID, questionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// Accounts

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, u.ID, u.Username, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to insert account: %w", translateError(err))
	}

	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM account
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return models.User{}, translateError(err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM account
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return models.User{}, translateError(err)
	}
	return u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
