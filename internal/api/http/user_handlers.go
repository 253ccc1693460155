package http

import (
	"net/http"

	"github.com/quizdeck/quizdeck/internal/attempt"
	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := authmw.UserFromContext(r.Context())
		writeJSON(w, 200, map[string]any{
			"id":          u.ID,
			"employee_id": u.EmployeeID,
			"full_name":   u.FullName,
			"email":       u.Email,
			"is_admin":    u.IsAdmin,
			"role":        u.Role(),
		})
	}
}

// MySubmissionsHandler lists the caller's attempts with quiz titles attached.
func MySubmissionsHandler(attempts attempt.Store, quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := authmw.UserFromContext(r.Context())
		rows, err := attempts.ListByUser(r.Context(), u.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		out := make([]map[string]any, 0, len(rows))
		for _, a := range rows {
			title := ""
			if q, err := quizzes.Get(r.Context(), a.QuizID); err == nil {
				title = q.Title
			}
			out = append(out, map[string]any{
				"id":           a.ID,
				"quiz_id":      a.QuizID,
				"quiz_title":   title,
				"status":       a.Status(),
				"started_at":   a.StartedAt,
				"submitted_at": a.SubmittedAt,
				"time_taken":   a.TimeTaken,
				"score":        a.Score,
			})
		}
		writeJSON(w, 200, out)
	}
}
