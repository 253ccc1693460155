package http

import (
	"net/http"

	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/leaderboard"
)

// TopLeaderboardHandler is the public podium view: top three plus the rest,
// no caller identity involved.
func TopLeaderboardHandler(proj *leaderboard.Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		split, err := proj.Top(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, split)
	}
}

// FullLeaderboardHandler returns the complete ranking with the caller's own
// row flagged.
func FullLeaderboardHandler(proj *leaderboard.Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		u := authmw.UserFromContext(r.Context())
		standings, err := proj.Rank(r.Context(), quizID, u.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"quiz_id": quizID, "leaderboard": standings})
	}
}
