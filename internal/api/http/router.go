package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quizdeck/quizdeck/internal/attempt"
	googleauth "github.com/quizdeck/quizdeck/internal/auth"
	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/leaderboard"
	"github.com/quizdeck/quizdeck/internal/mail"
	"github.com/quizdeck/quizdeck/internal/quiz"
	"github.com/quizdeck/quizdeck/internal/rbac"
)

// Deps carries everything the router wires together.
type Deps struct {
	Cfg      config.Config
	Auth     *authmw.AuthService
	Users    identity.Store
	Quizzes  quiz.Store
	Attempts attempt.Store
	Coord    *attempt.Coordinator
	Proj     *leaderboard.Projector
	Hub      *leaderboard.Hub
	Mailer   mail.Sender
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface
	r.Post("/auth/signup", SignupHandler(d.Users))
	r.Post("/auth/login", LoginHandler(d.Auth, d.Users))
	r.Post("/auth/forgot-password", ForgotPasswordHandler(d.Users, d.Mailer, d.Cfg))
	r.Post("/auth/reset-password", ResetPasswordHandler(d.Users))
	if d.Cfg.EnableGoogleAuth {
		googleLogin := googleauth.GoogleLoginHandler(d.Cfg)
		r.Get("/auth/login", googleLogin)
		r.Get("/auth/google/login", googleLogin)
		r.Get("/auth/google/callback", googleauth.GoogleCallbackHandler(d.Auth, d.Users, d.Cfg))
	}
	r.Get("/quizzes/{quizID}/leaderboard", TopLeaderboardHandler(d.Proj))
	ws := LeaderboardSocketHandler(d.Hub)
	r.Get("/ws", ws)
	r.Get("/ws/leaderboard", ws)

	// Authenticated surface (JWT resolves the user, RBAC gates per route)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth, d.Users))

		pr.Get("/user/me", MeHandler())
		pr.With(rbac.Require("attempt:view-own")).
			Get("/user/submissions", MySubmissionsHandler(d.Attempts, d.Quizzes))

		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", CreateQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:list-all")).
			Get("/quizzes", ListQuizzesHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/assigned", AssignedQuizzesHandler(d.Quizzes, d.Attempts))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:feedback")).
			Post("/quizzes/feedback", SubmitFeedbackHandler(d.Quizzes))
		pr.With(rbac.Require("leaderboard:view")).
			Get("/quizzes/{quizID}/leaderboard/full", FullLeaderboardHandler(d.Proj))

		pr.With(rbac.Require("attempt:start")).
			Post("/submissions/start/{quizID}", StartSubmissionHandler(d.Coord))
		pr.With(rbac.Require("attempt:submit")).
			Post("/submissions", FinalizeSubmissionHandler(d.Coord))
		pr.With(rbac.Require("submission:view-all")).
			Get("/submissions", ListSubmissionsHandler(d.Attempts, d.Users, d.Quizzes))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/submissions/{submissionID}", GetSubmissionHandler(d.Attempts, d.Users, d.Quizzes))

		// Admin surface: these permissions only match the admin wildcard.
		pr.With(rbac.Require("quiz:create")).
			Post("/admin/create-quiz", CreateQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:list-all")).
			Get("/admin/quizzes", ListQuizzesHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:toggle")).
			Patch("/admin/toggle-quiz/{quizID}", ToggleQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:assign")).
			Post("/admin/assign-quiz/{quizID}", AssignQuizHandler(d.Users, d.Quizzes))
		pr.With(rbac.Require("quiz:assign")).
			Post("/admin/assign-quiz-to-group/{quizID}/{groupID}", AssignQuizToGroupHandler(d.Users, d.Quizzes))
		pr.With(rbac.Require("quiz:status")).
			Get("/admin/quiz-status/{quizID}", QuizStatusHandler(d.Users, d.Quizzes, d.Attempts))
		pr.With(rbac.Require("quiz:remind")).
			Post("/admin/send-followup-email/{quizID}", SendFollowupHandler(d.Users, d.Quizzes, d.Attempts, d.Mailer))

		pr.With(rbac.Require("template:list")).
			Get("/admin/quiz-templates", ListTemplatesHandler(d.Quizzes))
		pr.With(rbac.Require("template:list")).
			Get("/admin/quiz-templates/{templateID}", GetTemplateHandler(d.Quizzes))
		pr.With(rbac.Require("template:create")).
			Post("/admin/quiz-templates", CreateTemplateHandler(d.Quizzes))

		pr.With(rbac.Require("feedback:view")).
			Get("/admin/feedbacks", ListFeedbackHandler(d.Quizzes))

		pr.With(rbac.Require("users:list")).
			Get("/admin/users", AdminUsersHandler(d.Users))
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/admin/users/bulk", BulkUpsertUsersHandler(d.Users))

		pr.With(rbac.Require("group:manage")).
			Post("/admin/create-group", CreateGroupHandler(d.Users))
		pr.With(rbac.Require("group:manage")).
			Post("/admin/groups", CreateGroupHandler(d.Users))
		pr.With(rbac.Require("group:manage")).
			Get("/admin/groups", ListGroupsHandler(d.Users))
		pr.With(rbac.Require("group:manage")).
			Get("/admin/groups/{groupID}/members", GroupMembersHandler(d.Users))
		pr.With(rbac.Require("group:manage")).
			Put("/admin/groups/{groupID}/members", UpdateGroupMembersHandler(d.Users))

		pr.With(rbac.Require("submission:view-all")).
			Get("/admin/submissions", ListSubmissionsHandler(d.Attempts, d.Users, d.Quizzes))

		pr.With(rbac.Require("report:export")).
			Get("/admin/export-users/{quizID}", ExportUsersHandler(d.Users, d.Quizzes, d.Attempts))
		pr.With(rbac.Require("report:export")).
			Get("/admin/export-leaderboard/{quizID}", ExportLeaderboardHandler(d.Users, d.Quizzes, d.Attempts))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	return r
}
