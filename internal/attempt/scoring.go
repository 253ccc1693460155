package attempt

import (
	"math"
	"strconv"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

// Tally is the server-side rescoring result. Client-reported aggregates are
// never trusted; every finalize recomputes from the stored answer key.
type Tally struct {
	Score             int
	CorrectCount      int
	IncorrectCount    int
	NotAttemptedCount int
}

// ScoreAnswers grades answers against the quiz's correct indexes. Keys are
// question positions ("0", "1", ...); a missing or out-of-range key counts as
// not attempted. Score is the correct fraction on a 0-100 scale.
func ScoreAnswers(questions []quiz.Question, answers map[string]int) Tally {
	var t Tally
	for i, q := range questions {
		chosen, ok := answers[strconv.Itoa(i)]
		if !ok || chosen < 0 || chosen >= len(q.Options) {
			t.NotAttemptedCount++
			continue
		}
		if chosen == q.CorrectIndex {
			t.CorrectCount++
		} else {
			t.IncorrectCount++
		}
	}
	if n := len(questions); n > 0 {
		t.Score = int(math.Round(float64(t.CorrectCount) / float64(n) * 100))
	}
	return t
}
