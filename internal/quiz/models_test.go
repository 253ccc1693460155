package quiz

import (
	"testing"
	"time"
)

func TestActiveAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		q    Quiz
		want bool
	}{
		{"active without window", Quiz{IsActive: true}, true},
		{"inactive without window", Quiz{IsActive: false}, false},
		{"active inside window", Quiz{IsActive: true, ActiveTill: &future}, true},
		{"active past window", Quiz{IsActive: true, ActiveTill: &past}, false},
		{"window boundary is inclusive", Quiz{IsActive: true, ActiveTill: &now}, true},
		{"override keeps lapsed quiz on", Quiz{IsActive: true, ManualOverrideActive: true, ActiveTill: &past}, true},
		{"override keeps quiz off despite window", Quiz{IsActive: false, ManualOverrideActive: true, ActiveTill: &future}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.ActiveAt(now); got != tc.want {
				t.Fatalf("ActiveAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	if !(Quiz{IsActive: true, ActiveTill: &past}).Expired(now) {
		t.Fatal("lapsed active quiz should be expired")
	}
	if (Quiz{IsActive: true, ManualOverrideActive: true, ActiveTill: &past}).Expired(now) {
		t.Fatal("overridden quiz must not be swept")
	}
	if (Quiz{IsActive: false, ActiveTill: &past}).Expired(now) {
		t.Fatal("already inactive quiz has nothing to sweep")
	}
	if (Quiz{IsActive: true}).Expired(now) {
		t.Fatal("windowless quiz never expires")
	}
}

func TestSanitizedStripsAnswerKey(t *testing.T) {
	q := Quiz{Questions: []Question{
		{Prompt: "a", Options: []string{"x", "y"}, CorrectIndex: 1},
		{Prompt: "b", Options: []string{"x", "y"}, CorrectIndex: 0},
	}}
	s := q.Sanitized()
	for i, question := range s.Questions {
		if question.CorrectIndex != -1 {
			t.Fatalf("question %d leaked correct index %d", i, question.CorrectIndex)
		}
	}
	// The original must stay intact.
	if q.Questions[0].CorrectIndex != 1 {
		t.Fatal("sanitizing mutated the source quiz")
	}
}
