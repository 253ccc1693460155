package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/quizdeck/quizdeck/internal/attempt"
	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

// StartSubmissionHandler opens (or resumes) the caller's attempt at a quiz.
func StartSubmissionHandler(coord *attempt.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		u := authmw.UserFromContext(r.Context())
		a, err := coord.Start(r.Context(), u.ID, u.IsAdmin, quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, a)
	}
}

// FinalizeSubmissionHandler scores and closes the caller's attempt. Scoring
// is recomputed server-side from the stored answer key.
func FinalizeSubmissionHandler(coord *attempt.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuizID    int64          `json:"quiz_id"`
			Answers   map[string]int `json:"answers"`
			StartedAt string         `json:"started_at"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.QuizID == 0 {
			http.Error(w, "quiz_id required", 400)
			return
		}
		u := authmw.UserFromContext(r.Context())
		a, err := coord.Submit(r.Context(), u.ID, req.QuizID, req.Answers, req.StartedAt)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, a)
	}
}

// ListSubmissionsHandler is the admin feed of attempts. With ?quiz= it lists
// every attempt at that quiz; otherwise the most recent across all quizzes,
// newest first.
func ListSubmissionsHandler(attempts attempt.Store, users identity.Store, quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("quiz"); v != "" {
			quizID, err := strconv.ParseInt(v, 10, 64)
			if err != nil || quizID <= 0 {
				http.Error(w, "bad quiz id", 400)
				return
			}
			if _, err := quizzes.Get(r.Context(), quizID); err != nil {
				writeErr(w, err)
				return
			}
			rows, err := attempts.ListByQuiz(r.Context(), quizID)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, 200, decorate(r, rows, users, quizzes))
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		rows, err := attempts.Recent(r.Context(), limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, decorate(r, rows, users, quizzes))
	}
}

// GetSubmissionHandler serves one attempt. Non-admins can only read their
// own rows.
func GetSubmissionHandler(attempts attempt.Store, users identity.Store, quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "submissionID")
		if !ok {
			http.Error(w, "bad submission id", 400)
			return
		}
		a, err := attempts.ByID(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		u := authmw.UserFromContext(r.Context())
		if !u.IsAdmin && a.UserID != u.ID {
			http.Error(w, "forbidden", 403)
			return
		}
		writeJSON(w, 200, decorate(r, []attempt.Attempt{a}, users, quizzes)[0])
	}
}

func decorate(r *http.Request, rows []attempt.Attempt, users identity.Store, quizzes quiz.Store) []map[string]any {
	ids := make([]int64, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.UserID)
	}
	byID, _ := users.UsersByIDs(r.Context(), ids)
	titles := map[int64]string{}
	out := make([]map[string]any, 0, len(rows))
	for _, a := range rows {
		title, ok := titles[a.QuizID]
		if !ok {
			if q, err := quizzes.Get(r.Context(), a.QuizID); err == nil {
				title = q.Title
			}
			titles[a.QuizID] = title
		}
		u := byID[a.UserID]
		out = append(out, map[string]any{
			"id":                  a.ID,
			"user_id":             a.UserID,
			"user_name":           u.FullName,
			"user_email":          u.Email,
			"quiz_id":             a.QuizID,
			"quiz_title":          title,
			"status":              a.Status(),
			"started_at":          a.StartedAt,
			"submitted_at":        a.SubmittedAt,
			"time_taken":          a.TimeTaken,
			"score":               a.Score,
			"correct_count":       a.CorrectCount,
			"incorrect_count":     a.IncorrectCount,
			"not_attempted_count": a.NotAttemptedCount,
		})
	}
	return out
}
