package http

import (
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/quizdeck/quizdeck/internal/attempt"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/quiz"
	"github.com/quizdeck/quizdeck/internal/report"
)

// ExportUsersHandler streams the assigned-users workbook for a quiz.
func ExportUsersHandler(users identity.Store, quizzes quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		q, err := quizzes.Get(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		granted, finalized, byID, err := assignmentStatus(r, users, quizzes, attempts, quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		done := map[int64]attempt.Attempt{}
		for _, a := range finalized {
			done[a.UserID] = a
		}
		rows := make([]report.UserRow, 0, len(granted))
		for _, id := range granted {
			u := byID[id]
			row := report.UserRow{EmployeeID: u.EmployeeID, FullName: u.FullName, Email: u.Email}
			if a, ok := done[id]; ok {
				row.Attempted = true
				if a.Score != nil {
					row.Score = *a.Score
				}
				row.TimeTaken = a.TimeTaken
			}
			rows = append(rows, row)
		}
		f, filename, err := report.UsersReport(q.Title, rows)
		if err != nil {
			writeErr(w, err)
			return
		}
		serveXLSX(w, f, filename)
	}
}

// ExportLeaderboardHandler streams the leaderboard workbook for a quiz.
func ExportLeaderboardHandler(users identity.Store, quizzes quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		q, err := quizzes.Get(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		finalized, err := attempts.FinalizedByQuiz(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		ids := make([]int64, 0, len(finalized))
		for _, a := range finalized {
			ids = append(ids, a.UserID)
		}
		byID, err := users.UsersByIDs(r.Context(), ids)
		if err != nil {
			writeErr(w, err)
			return
		}
		rows := make([]report.LeaderboardRow, 0, len(finalized))
		for _, a := range finalized {
			u := byID[a.UserID]
			row := report.LeaderboardRow{
				EmployeeID: u.EmployeeID,
				FullName:   u.FullName,
				Email:      u.Email,
				TimeTaken:  a.TimeTaken,
			}
			if a.Score != nil {
				row.Score = *a.Score
			}
			if a.SubmittedAt != nil {
				row.SubmittedAt = time.Unix(*a.SubmittedAt, 0).UTC()
			}
			rows = append(rows, row)
		}
		f, filename, err := report.LeaderboardReport(q.Title, rows)
		if err != nil {
			writeErr(w, err)
			return
		}
		serveXLSX(w, f, filename)
	}
}

func serveXLSX(w http.ResponseWriter, f *excelize.File, filename string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_ = f.Write(w)
}
