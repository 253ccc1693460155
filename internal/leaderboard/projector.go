package leaderboard

import (
	"context"
	"time"

	"github.com/quizdeck/quizdeck/internal/attempt"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

// Standing is one ranked row. Ranks are dense 1..N under the comparator
// score desc, time_taken asc (faster completion wins ties).
type Standing struct {
	Rank              int     `json:"rank"`
	UserID            int64   `json:"-"`
	FullName          string  `json:"full_name"`
	Email             string  `json:"email,omitempty"`
	Score             int     `json:"score"`
	CorrectCount      int     `json:"correct_count"`
	IncorrectCount    int     `json:"incorrect_count"`
	NotAttemptedCount int     `json:"not_attempted_count"`
	TimeTaken         float64 `json:"time_taken"`
	SubmittedAt       string  `json:"submitted_at,omitempty"`
	IsCurrentUser     bool    `json:"is_current_user"`
}

// Projector is a read-only aggregation over the attempt ledger. It owns no
// state of its own; it only projects finalized rows.
type Projector struct {
	attempts attempt.Store
	quizzes  quiz.Store
	users    identity.Store
}

func NewProjector(attempts attempt.Store, quizzes quiz.Store, users identity.Store) *Projector {
	return &Projector{attempts: attempts, quizzes: quizzes, users: users}
}

// Rank returns the full ranked list for a quiz. currentUserID of 0 leaves
// every IsCurrentUser flag false (the public presentation).
func (p *Projector) Rank(ctx context.Context, quizID, currentUserID int64) ([]Standing, error) {
	if _, err := p.quizzes.Get(ctx, quizID); err != nil {
		return nil, err
	}
	rows, err := p.attempts.FinalizedByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.UserID)
	}
	users, err := p.users.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Standing, 0, len(rows))
	for i, a := range rows {
		u := users[a.UserID]
		s := Standing{
			Rank:          i + 1,
			UserID:        a.UserID,
			FullName:      u.FullName,
			Email:         u.Email,
			TimeTaken:     a.TimeTaken,
			IsCurrentUser: currentUserID != 0 && a.UserID == currentUserID,
		}
		if a.Score != nil {
			s.Score = *a.Score
		}
		if a.CorrectCount != nil {
			s.CorrectCount = *a.CorrectCount
		}
		if a.IncorrectCount != nil {
			s.IncorrectCount = *a.IncorrectCount
		}
		if a.NotAttemptedCount != nil {
			s.NotAttemptedCount = *a.NotAttemptedCount
		}
		if a.SubmittedAt != nil {
			s.SubmittedAt = time.Unix(*a.SubmittedAt, 0).UTC().Format(time.RFC3339)
		}
		out = append(out, s)
	}
	return out, nil
}

// TopSplit is the public presentation: the podium plus everyone else.
type TopSplit struct {
	QuizID int64      `json:"quiz_id"`
	Top3   []Standing `json:"top_3"`
	Others []Standing `json:"others"`
}

func (p *Projector) Top(ctx context.Context, quizID int64) (TopSplit, error) {
	standings, err := p.Rank(ctx, quizID, 0)
	if err != nil {
		return TopSplit{}, err
	}
	split := TopSplit{QuizID: quizID, Top3: []Standing{}, Others: []Standing{}}
	for _, s := range standings {
		if s.Rank <= 3 {
			split.Top3 = append(split.Top3, s)
		} else {
			split.Others = append(split.Others, s)
		}
	}
	return split, nil
}
