package attempt

import (
	"testing"

	"github.com/quizdeck/quizdeck/internal/quiz"
)

func fiveQuestions() []quiz.Question {
	qs := make([]quiz.Question, 5)
	for i := range qs {
		qs[i] = quiz.Question{
			Prompt:       "q",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
		}
	}
	return qs
}

func TestScoreAnswers(t *testing.T) {
	qs := fiveQuestions()

	cases := []struct {
		name    string
		answers map[string]int
		want    Tally
	}{
		{
			name:    "all correct",
			answers: map[string]int{"0": 0, "1": 1, "2": 2, "3": 3, "4": 0},
			want:    Tally{Score: 100, CorrectCount: 5},
		},
		{
			name:    "four of five",
			answers: map[string]int{"0": 0, "1": 1, "2": 2, "3": 3, "4": 1},
			want:    Tally{Score: 80, CorrectCount: 4, IncorrectCount: 1},
		},
		{
			name:    "missing keys count as not attempted",
			answers: map[string]int{"0": 0, "2": 2},
			want:    Tally{Score: 40, CorrectCount: 2, NotAttemptedCount: 3},
		},
		{
			name:    "out of range option is not attempted",
			answers: map[string]int{"0": 9, "1": -1, "2": 2, "3": 3, "4": 0},
			want:    Tally{Score: 60, CorrectCount: 3, NotAttemptedCount: 2},
		},
		{
			name:    "unknown keys are ignored",
			answers: map[string]int{"99": 0},
			want:    Tally{NotAttemptedCount: 5},
		},
		{
			name:    "nil answers",
			answers: nil,
			want:    Tally{NotAttemptedCount: 5},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreAnswers(qs, tc.answers)
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestScoreAnswersRounds(t *testing.T) {
	qs := fiveQuestions()[:3]
	// 2 of 3 correct is 66.67, rounded to 67
	got := ScoreAnswers(qs, map[string]int{"0": 0, "1": 1, "2": 0})
	if got.Score != 67 {
		t.Fatalf("score = %d, want 67", got.Score)
	}
}

func TestScoreAnswersEmptyQuiz(t *testing.T) {
	got := ScoreAnswers(nil, map[string]int{"0": 0})
	if got.Score != 0 || got.CorrectCount != 0 {
		t.Fatalf("empty quiz should score zero, got %+v", got)
	}
}
