package attempt

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("attempt not found")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrDuplicate        = errors.New("attempt already exists")
	ErrInvalidStart     = errors.New("invalid start time")
	ErrQuizInactive     = errors.New("quiz is not active")
	ErrNoAccess         = errors.New("quiz not assigned to user")
)

const (
	StatusInProgress = "in_progress"
	StatusFinalized  = "finalized"
)

// Attempt is one ledger row: a single user's single pass at a quiz, from
// start through finalize. Score fields stay nil until finalize.
type Attempt struct {
	ID                int64          `json:"id"`
	UserID            int64          `json:"user_id"`
	QuizID            int64          `json:"quiz_id"`
	StartedAt         int64          `json:"started_at"`
	SubmittedAt       *int64         `json:"submitted_at,omitempty"`
	TimeTaken         float64        `json:"time_taken"`
	Score             *int           `json:"score,omitempty"`
	CorrectCount      *int           `json:"correct_count,omitempty"`
	IncorrectCount    *int           `json:"incorrect_count,omitempty"`
	NotAttemptedCount *int           `json:"not_attempted_count,omitempty"`
	Answers           map[string]int `json:"answers,omitempty"`
}

func (a Attempt) Status() string {
	if a.SubmittedAt != nil {
		return StatusFinalized
	}
	return StatusInProgress
}

// Store is the attempt ledger. Finalize must be exactly-once: a second call
// for the same row reports ErrAlreadySubmitted.
type Store interface {
	Create(ctx context.Context, a Attempt) (Attempt, error)
	ByID(ctx context.Context, id int64) (Attempt, error)
	ByUserQuiz(ctx context.Context, userID, quizID int64) (Attempt, error)
	Finalize(ctx context.Context, a Attempt) error
	ListByUser(ctx context.Context, userID int64) ([]Attempt, error)
	ListByQuiz(ctx context.Context, quizID int64) ([]Attempt, error)
	// FinalizedByQuiz returns submitted attempts ordered by score descending,
	// time taken ascending (the leaderboard comparator).
	FinalizedByQuiz(ctx context.Context, quizID int64) ([]Attempt, error)
	AttemptedQuizIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	Recent(ctx context.Context, limit int) ([]Attempt, error)
}
