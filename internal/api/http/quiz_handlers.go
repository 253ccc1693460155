package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quizdeck/quizdeck/internal/attempt"
	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

// ListQuizzesHandler returns every quiz partitioned into active and inactive.
// Listing runs the expiry sweep, so lapsed windows are already deactivated in
// what the caller sees.
func ListQuizzesHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		all, err := quizzes.List(r.Context(), now)
		if err != nil {
			writeErr(w, err)
			return
		}
		active := []quiz.Quiz{}
		inactive := []quiz.Quiz{}
		for _, q := range all {
			if q.ActiveAt(now) {
				active = append(active, q)
			} else {
				inactive = append(inactive, q)
			}
		}
		writeJSON(w, 200, map[string]any{"active": active, "inactive": inactive})
	}
}

// GetQuizHandler serves one quiz. Admins get the full definition. Everyone
// else needs an access grant and an open activation window, and gets the
// sanitized copy without correct indexes.
func GetQuizHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		q, err := quizzes.Get(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		u := authmw.UserFromContext(r.Context())
		if u.IsAdmin {
			writeJSON(w, 200, q)
			return
		}
		if !q.ActiveAt(time.Now()) {
			writeErr(w, attempt.ErrQuizInactive)
			return
		}
		ok, err = quizzes.HasAccess(r.Context(), u.ID, id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !ok {
			writeErr(w, attempt.ErrNoAccess)
			return
		}
		writeJSON(w, 200, q.Sanitized())
	}
}

// AssignedQuizzesHandler lists the quizzes granted to the caller that are
// currently open, flagging the ones already attempted.
func AssignedQuizzesHandler(quizzes quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := authmw.UserFromContext(r.Context())
		rows, err := quizzes.Assigned(r.Context(), u.ID, time.Now())
		if err != nil {
			writeErr(w, err)
			return
		}
		attempted, err := attempts.AttemptedQuizIDs(r.Context(), u.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		out := make([]map[string]any, 0, len(rows))
		for _, q := range rows {
			out = append(out, map[string]any{
				"id":              q.ID,
				"title":           q.Title,
				"description":     q.Description,
				"time_limit":      q.TimeLimit,
				"active_till":     q.ActiveTill,
				"total_questions": len(q.Questions),
				"has_attempted":   attempted[q.ID],
			})
		}
		writeJSON(w, 200, out)
	}
}

func SubmitFeedbackHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuizID int64  `json:"quiz_id"`
			Text   string `json:"feedback_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.QuizID == 0 || req.Text == "" {
			http.Error(w, "quiz_id and feedback_text required", 400)
			return
		}
		u := authmw.UserFromContext(r.Context())
		f, err := quizzes.AddFeedback(r.Context(), quiz.Feedback{
			UserID: u.ID,
			QuizID: req.QuizID,
			Text:   req.Text,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 201, f)
	}
}
