package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

// Notifier receives a best-effort signal after a finalize lands. Failures are
// the caller's to swallow; a finalize never depends on delivery.
type Notifier interface {
	QuizSubmitted(ctx context.Context, quizID int64)
}

type NotifierFunc func(ctx context.Context, quizID int64)

func (f NotifierFunc) QuizSubmitted(ctx context.Context, quizID int64) { f(ctx, quizID) }

// Coordinator drives an attempt through
// NOT_STARTED -> IN_PROGRESS -> FINALIZED. No reverse transitions.
type Coordinator struct {
	attempts Store
	quizzes  quiz.Store
	notifier Notifier
	now      func() time.Time
}

func NewCoordinator(attempts Store, quizzes quiz.Store, notifier Notifier) *Coordinator {
	return &Coordinator{attempts: attempts, quizzes: quizzes, notifier: notifier, now: time.Now}
}

// NewCoordinatorWithClock is test-only for deterministic timestamps.
func NewCoordinatorWithClock(attempts Store, quizzes quiz.Store, notifier Notifier, now func() time.Time) *Coordinator {
	c := NewCoordinator(attempts, quizzes, notifier)
	c.now = now
	return c
}

// Start opens an in-progress ledger row. Admin callers may preview inactive
// or unassigned quizzes; everyone else needs an access grant on an active
// quiz. A repeat start returns the existing in-progress row rather than
// duplicating it; the store's (user, quiz) uniqueness makes the concurrent
// case collapse to the same answer.
func (c *Coordinator) Start(ctx context.Context, userID int64, isAdmin bool, quizID int64) (Attempt, error) {
	q, err := c.quizzes.Get(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	now := c.now()
	if !isAdmin {
		if !q.ActiveAt(now) {
			return Attempt{}, ErrQuizInactive
		}
		ok, err := c.quizzes.HasAccess(ctx, userID, quizID)
		if err != nil {
			return Attempt{}, err
		}
		if !ok {
			return Attempt{}, ErrNoAccess
		}
	}

	a, err := c.attempts.Create(ctx, Attempt{
		UserID:    userID,
		QuizID:    quizID,
		StartedAt: now.Unix(),
	})
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return Attempt{}, err
	}
	existing, lookupErr := c.attempts.ByUserQuiz(ctx, userID, quizID)
	if lookupErr != nil {
		return Attempt{}, lookupErr
	}
	if existing.Status() == StatusFinalized {
		return Attempt{}, ErrAlreadySubmitted
	}
	return existing, nil
}

// Submit finalizes the attempt for (user, quiz): adopts the caller-supplied
// start time only when the ledger has none (the direct-submit path), computes
// elapsed seconds, rescored server-side from the quiz's answer key, then
// persists exactly once and signals the leaderboard.
func (c *Coordinator) Submit(ctx context.Context, userID, quizID int64, answers map[string]int, claimedStartedAt string) (Attempt, error) {
	a, err := c.attempts.ByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status() == StatusFinalized {
		return Attempt{}, ErrAlreadySubmitted
	}

	if a.StartedAt == 0 {
		if claimedStartedAt == "" {
			return Attempt{}, ErrInvalidStart
		}
		t, err := time.Parse(time.RFC3339, claimedStartedAt)
		if err != nil {
			return Attempt{}, ErrInvalidStart
		}
		a.StartedAt = t.Unix()
	}

	submittedAt := c.now().Unix()
	elapsed := float64(submittedAt - a.StartedAt)
	if elapsed < 0 {
		// Clock or payload corruption; never record negative elapsed time.
		return Attempt{}, ErrInvalidStart
	}

	q, err := c.quizzes.Get(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	tally := ScoreAnswers(q.Questions, answers)

	a.SubmittedAt = &submittedAt
	a.TimeTaken = elapsed
	a.Score = &tally.Score
	a.CorrectCount = &tally.CorrectCount
	a.IncorrectCount = &tally.IncorrectCount
	a.NotAttemptedCount = &tally.NotAttemptedCount
	a.Answers = answers

	if err := c.attempts.Finalize(ctx, a); err != nil {
		return Attempt{}, err
	}
	if c.notifier != nil {
		c.notifier.QuizSubmitted(ctx, quizID)
	}
	return a, nil
}
