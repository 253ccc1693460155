package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quizdeck/quizdeck/internal/attempt"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

func seedFinalized(t *testing.T, attempts attempt.Store, userID, quizID int64, score int, taken float64, at time.Time) {
	t.Helper()
	a, err := attempts.Create(context.Background(), attempt.Attempt{
		UserID:    userID,
		QuizID:    quizID,
		StartedAt: at.Add(-time.Duration(taken) * time.Second).Unix(),
	})
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	submitted := at.Unix()
	a.SubmittedAt = &submitted
	a.TimeTaken = taken
	a.Score = &score
	correct := score / 20
	incorrect := 5 - correct
	zero := 0
	a.CorrectCount = &correct
	a.IncorrectCount = &incorrect
	a.NotAttemptedCount = &zero
	if err := attempts.Finalize(context.Background(), a); err != nil {
		t.Fatalf("finalize: %v", err)
	}
}

func projectorFixture(t *testing.T) (*Projector, attempt.Store, int64) {
	t.Helper()
	ctx := context.Background()
	users := identity.NewInMemoryStore()
	quizzes := quiz.NewInMemoryStore()
	attempts := attempt.NewInMemoryStore()

	for _, u := range []identity.User{
		{EmployeeID: "E1", FullName: "Ada", Email: "ada@example.com"},
		{EmployeeID: "E2", FullName: "Ben", Email: "ben@example.com"},
		{EmployeeID: "E3", FullName: "Cleo", Email: "cleo@example.com"},
		{EmployeeID: "E4", FullName: "Dev", Email: "dev@example.com"},
	} {
		u.PasswordHash = "x"
		if _, err := users.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	q, err := quizzes.Create(ctx, quiz.Quiz{Title: "Go", IsActive: true})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return NewProjector(attempts, quizzes, users), attempts, q.ID
}

func TestRankOrdersAndFlagsCaller(t *testing.T) {
	proj, attempts, quizID := projectorFixture(t)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	seedFinalized(t, attempts, 1, quizID, 60, 200, at)
	seedFinalized(t, attempts, 2, quizID, 100, 150, at)
	seedFinalized(t, attempts, 3, quizID, 100, 120, at) // same score, faster
	seedFinalized(t, attempts, 4, quizID, 80, 90, at)

	standings, err := proj.Rank(context.Background(), quizID, 4)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	wantOrder := []string{"Cleo", "Ben", "Dev", "Ada"}
	if len(standings) != len(wantOrder) {
		t.Fatalf("got %d standings, want %d", len(standings), len(wantOrder))
	}
	for i, s := range standings {
		if s.FullName != wantOrder[i] {
			t.Fatalf("rank %d = %s, want %s", i+1, s.FullName, wantOrder[i])
		}
		if s.Rank != i+1 {
			t.Fatalf("rank field = %d, want %d", s.Rank, i+1)
		}
	}
	if !standings[2].IsCurrentUser {
		t.Fatal("caller's row not flagged")
	}
	for i, s := range standings {
		if i != 2 && s.IsCurrentUser {
			t.Fatalf("row %d wrongly flagged as current user", i)
		}
	}
	if standings[0].SubmittedAt != at.Format(time.RFC3339) {
		t.Fatalf("submitted_at = %q", standings[0].SubmittedAt)
	}
}

func TestTopSplitsPodium(t *testing.T) {
	proj, attempts, quizID := projectorFixture(t)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	seedFinalized(t, attempts, 1, quizID, 60, 200, at)
	seedFinalized(t, attempts, 2, quizID, 100, 150, at)
	seedFinalized(t, attempts, 3, quizID, 90, 120, at)
	seedFinalized(t, attempts, 4, quizID, 80, 90, at)

	split, err := proj.Top(context.Background(), quizID)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(split.Top3) != 3 || len(split.Others) != 1 {
		t.Fatalf("split = %d/%d, want 3/1", len(split.Top3), len(split.Others))
	}
	if split.Others[0].FullName != "Ada" {
		t.Fatalf("others = %+v", split.Others)
	}
	for _, s := range append(split.Top3, split.Others...) {
		if s.IsCurrentUser {
			t.Fatal("public view must not flag any caller")
		}
	}
}

func TestTopUnderThreeEntrants(t *testing.T) {
	proj, attempts, quizID := projectorFixture(t)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	seedFinalized(t, attempts, 1, quizID, 60, 200, at)

	split, err := proj.Top(context.Background(), quizID)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(split.Top3) != 1 || len(split.Others) != 0 {
		t.Fatalf("split = %d/%d, want 1/0", len(split.Top3), len(split.Others))
	}
}

func TestRankUnknownQuiz(t *testing.T) {
	proj, _, _ := projectorFixture(t)
	if _, err := proj.Rank(context.Background(), 999, 0); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("err = %v, want quiz.ErrNotFound", err)
	}
}

func TestRankEmptyQuiz(t *testing.T) {
	proj, _, quizID := projectorFixture(t)
	standings, err := proj.Rank(context.Background(), quizID, 0)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(standings) != 0 {
		t.Fatalf("standings = %+v, want empty", standings)
	}
}
