package quiz

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("quiz not found")

type Question struct {
	Prompt       string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct"`
	TimeLimit    int      `json:"time_limit"`
}

type Quiz struct {
	ID                   int64      `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Questions            []Question `json:"questions"`
	TimeLimit            int64      `json:"time_limit"`
	IsActive             bool       `json:"is_active"`
	ManualOverrideActive bool       `json:"manual_override_active"`
	ActiveTill           *time.Time `json:"active_till,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	SourceQuizID         *int64     `json:"source_quiz_id,omitempty"`
}

// ActiveAt is the activation-window predicate. A manual override freezes the
// stored flag against the clock; otherwise the flag only holds while the
// window has not lapsed.
func (q Quiz) ActiveAt(now time.Time) bool {
	if q.ManualOverrideActive {
		return q.IsActive
	}
	if !q.IsActive {
		return false
	}
	return q.ActiveTill == nil || !q.ActiveTill.Before(now)
}

// Expired reports whether the lazy sweep should persist a deactivation.
func (q Quiz) Expired(now time.Time) bool {
	return q.IsActive && !q.ManualOverrideActive && q.ActiveTill != nil && q.ActiveTill.Before(now)
}

// Sanitized returns a copy safe to hand to an attempting user: correct
// indexes are stripped so the answer key never crosses the wire.
func (q Quiz) Sanitized() Quiz {
	qs := make([]Question, len(q.Questions))
	copy(qs, q.Questions)
	for i := range qs {
		qs[i].CorrectIndex = -1
	}
	q.Questions = qs
	return q
}

// Template is a reusable question set an admin can instantiate a quiz from.
type Template struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

type Feedback struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	QuizID   int64  `json:"quiz_id"`
	Text     string `json:"feedback_text"`
	UserName string `json:"user_name,omitempty"`
	Title    string `json:"quiz_title,omitempty"`
}
