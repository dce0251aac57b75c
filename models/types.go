package models

import "time"

// Messages shown back to the voter on the detail page
const (
	MsgNoChoice     = "You didn't select a choice."
	MsgVotingClosed = "Voting is closed for this question."
)

// Audit event kinds
const (
	EventVote        = "vote"
	EventLogin       = "login"
	EventLoginFailed = "login_failed"
	EventLogout      = "logout"
	EventSignup      = "signup"
)

// Request types

type CreateQuestionRequest struct {
	Text        string     `json:"text"`
	PublishTime *time.Time `json:"publish_time,omitempty"`
	EndTime     time.Time  `json:"end_time"`
}

type AddChoiceRequest struct {
	Text string `json:"text"`
}

// Response types

type CreateQuestionResponse struct {
	QuestionID string `json:"question_id"`
}

type AddChoiceResponse struct {
	ChoiceID string `json:"choice_id"`
}

type ChoiceTally struct {
	ChoiceID  string `json:"choice_id"`
	Text      string `json:"text"`
	VoteCount int    `json:"vote_count"`
}

type ResultsResponse struct {
	QuestionID string        `json:"question_id"`
	Text       string        `json:"text"`
	TotalVotes int           `json:"total_votes"`
	Choices    []ChoiceTally `json:"choices"`
}

// Domain types

type Question struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	PublishTime time.Time `json:"publish_time"`
	EndTime     time.Time `json:"end_time"`
}

// IsPublished reports whether the question is visible at now.
func (q Question) IsPublished(now time.Time) bool {
	return !now.Before(q.PublishTime)
}

// CanVote reports whether the question accepts votes at now.
func (q Question) CanVote(now time.Time) bool {
	return q.IsPublished(now) && now.Before(q.EndTime)
}

// WasPublishedRecently reports whether the question went live within the last day.
func (q Question) WasPublishedRecently(now time.Time) bool {
	return !q.PublishTime.Before(now.Add(-24*time.Hour)) && !q.PublishTime.After(now)
}

type Choice struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	VoteCount  int    `json:"vote_count"` // aggregated, never stored
}

type Vote struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	QuestionID string    `json:"question_id"`
	ChoiceID   string    `json:"choice_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
}

// Tallies converts choices into their wire form.
func Tallies(q Question, choices []Choice) ResultsResponse {
	resp := ResultsResponse{
		QuestionID: q.ID,
		Text:       q.Text,
		Choices:    make([]ChoiceTally, 0, len(choices)),
	}
	for _, c := range choices {
		resp.TotalVotes += c.VoteCount
		resp.Choices = append(resp.Choices, ChoiceTally{
			ChoiceID:  c.ID,
			Text:      c.Text,
			VoteCount: c.VoteCount,
		})
	}
	return resp
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
