package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizdeck/quizdeck/internal/attempt"
	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/leaderboard"
	"github.com/quizdeck/quizdeck/internal/mail"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

type fixture struct {
	deps   Deps
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := identity.NewInMemoryStore()
	quizzes := quiz.NewInMemoryStore()
	attempts := attempt.NewInMemoryStore()
	hub := leaderboard.NewHub()

	deps := Deps{
		Cfg:      config.FromEnv(),
		Auth:     authmw.NewAuthService("test-secret"),
		Users:    users,
		Quizzes:  quizzes,
		Attempts: attempts,
		Coord:    attempt.NewCoordinator(attempts, quizzes, leaderboard.NewHubNotifier(hub)),
		Proj:     leaderboard.NewProjector(attempts, quizzes, users),
		Hub:      hub,
		Mailer:   mail.NoopSender{},
	}
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return &fixture{deps: deps, server: srv}
}

func (f *fixture) createUser(t *testing.T, employeeID, name, email string, admin bool) identity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pass1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := f.deps.Users.CreateUser(context.Background(), identity.User{
		EmployeeID:   employeeID,
		FullName:     name,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      admin,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) token(t *testing.T, u identity.User) string {
	t.Helper()
	token, err := f.deps.Auth.IssueJWT(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func (f *fixture) seedQuiz(t *testing.T, userIDs ...int64) quiz.Quiz {
	t.Helper()
	qs := make([]quiz.Question, 5)
	for i := range qs {
		qs[i] = quiz.Question{Prompt: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2}
	}
	q, err := f.deps.Quizzes.Create(context.Background(), quiz.Quiz{Title: "Go Basics", Questions: qs, IsActive: true})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if len(userIDs) > 0 {
		if err := f.deps.Quizzes.Grant(context.Background(), userIDs, q.ID); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	return q
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/auth/signup", "", map[string]any{
		"employee_id": "E1",
		"full_name":   "Ada",
		"email":       "Ada@Example.com",
		"password":    "pass1234",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("signup code = %d", resp.StatusCode)
	}

	// Email is normalized on the way in.
	resp = f.do(t, "POST", "/auth/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "pass1234",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("login code = %d", resp.StatusCode)
	}
	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		IsAdmin     bool   `json:"is_admin"`
	}
	decodeBody(t, resp, &login)
	if login.AccessToken == "" || login.TokenType != "bearer" || login.IsAdmin {
		t.Fatalf("login = %+v", login)
	}

	// The minted token works against a protected route.
	resp = f.do(t, "GET", "/user/me", login.AccessToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("me code = %d", resp.StatusCode)
	}

	// Wrong password.
	resp = f.do(t, "POST", "/auth/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != 401 {
		t.Fatalf("bad login code = %d", resp.StatusCode)
	}

	// Duplicate signup.
	resp = f.do(t, "POST", "/auth/signup", "", map[string]any{
		"employee_id": "E2",
		"full_name":   "Imposter",
		"email":       "ada@example.com",
		"password":    "pass1234",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("duplicate signup code = %d", resp.StatusCode)
	}
}

func TestAttemptLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "E1", "Ada", "ada@example.com", false)
	token := f.token(t, u)
	q := f.seedQuiz(t, u.ID)

	resp := f.do(t, "POST", fmt.Sprintf("/submissions/start/%d", q.ID), token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("start code = %d", resp.StatusCode)
	}
	var started attempt.Attempt
	decodeBody(t, resp, &started)
	if started.Status() != attempt.StatusInProgress {
		t.Fatalf("status = %q", started.Status())
	}

	resp = f.do(t, "POST", "/submissions", token, map[string]any{
		"quiz_id": q.ID,
		"answers": map[string]int{"0": 2, "1": 2, "2": 2, "3": 2, "4": 0},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("submit code = %d", resp.StatusCode)
	}
	var final attempt.Attempt
	decodeBody(t, resp, &final)
	if final.Score == nil || *final.Score != 80 {
		t.Fatalf("score = %v, want 80", final.Score)
	}

	// Second submit conflicts.
	resp = f.do(t, "POST", "/submissions", token, map[string]any{
		"quiz_id": q.ID,
		"answers": map[string]int{"0": 2},
	})
	if resp.StatusCode != 409 {
		t.Fatalf("resubmit code = %d, want 409", resp.StatusCode)
	}

	// The public leaderboard sees the result without auth.
	resp = f.do(t, "GET", fmt.Sprintf("/quizzes/%d/leaderboard", q.ID), "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("leaderboard code = %d", resp.StatusCode)
	}
	var split leaderboard.TopSplit
	decodeBody(t, resp, &split)
	if len(split.Top3) != 1 || split.Top3[0].FullName != "Ada" || split.Top3[0].Score != 80 {
		t.Fatalf("split = %+v", split)
	}

	// The authed view flags the caller's row.
	resp = f.do(t, "GET", fmt.Sprintf("/quizzes/%d/leaderboard/full", q.ID), token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("full leaderboard code = %d", resp.StatusCode)
	}
	var full struct {
		Leaderboard []leaderboard.Standing `json:"leaderboard"`
	}
	decodeBody(t, resp, &full)
	if len(full.Leaderboard) != 1 || !full.Leaderboard[0].IsCurrentUser {
		t.Fatalf("full = %+v", full)
	}
}

func TestStartDeniedWithoutGrant(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "E1", "Ada", "ada@example.com", false)
	token := f.token(t, u)
	q := f.seedQuiz(t) // no grants

	resp := f.do(t, "POST", fmt.Sprintf("/submissions/start/%d", q.ID), token, nil)
	if resp.StatusCode != 403 {
		t.Fatalf("ungranted start code = %d, want 403", resp.StatusCode)
	}
	resp = f.do(t, "POST", "/submissions/start/999", token, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("missing quiz code = %d, want 404", resp.StatusCode)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "E1", "Ada", "ada@example.com", false)
	admin := f.createUser(t, "E2", "Root", "root@example.com", true)

	// Plain users are rejected by RBAC.
	resp := f.do(t, "GET", "/admin/users", f.token(t, user), nil)
	if resp.StatusCode != 403 {
		t.Fatalf("user on admin route code = %d, want 403", resp.StatusCode)
	}
	// Anonymous callers never get past the JWT middleware.
	resp = f.do(t, "GET", "/admin/users", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("anonymous code = %d, want 401", resp.StatusCode)
	}

	adminToken := f.token(t, admin)
	resp = f.do(t, "POST", "/admin/create-quiz", adminToken, map[string]any{
		"title":     "New Quiz",
		"is_active": true,
		"questions": []map[string]any{
			{"question": "pick b", "options": []string{"a", "b"}, "correct": 1},
		},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create quiz code = %d", resp.StatusCode)
	}
	var created quiz.Quiz
	decodeBody(t, resp, &created)

	resp = f.do(t, "POST", fmt.Sprintf("/admin/assign-quiz/%d", created.ID), adminToken, map[string]any{
		"emails": []string{"ada@example.com", "nobody@example.com"},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("assign code = %d", resp.StatusCode)
	}
	var assigned struct {
		Assigned int `json:"assigned"`
		Unknown  int `json:"unknown"`
	}
	decodeBody(t, resp, &assigned)
	if assigned.Assigned != 1 || assigned.Unknown != 1 {
		t.Fatalf("assign = %+v", assigned)
	}

	// The grant is now visible to the assignee.
	resp = f.do(t, "GET", "/quizzes/assigned", f.token(t, user), nil)
	if resp.StatusCode != 200 {
		t.Fatalf("assigned code = %d", resp.StatusCode)
	}
	var list []struct {
		ID             int64 `json:"id"`
		TotalQuestions int   `json:"total_questions"`
		HasAttempted   bool  `json:"has_attempted"`
	}
	decodeBody(t, resp, &list)
	if len(list) != 1 || list[0].ID != created.ID || list[0].TotalQuestions != 1 || list[0].HasAttempted {
		t.Fatalf("assigned list = %+v", list)
	}

	// Toggle off and the quiz disappears from the user's view.
	resp = f.do(t, "PATCH", fmt.Sprintf("/admin/toggle-quiz/%d", created.ID), adminToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("toggle code = %d", resp.StatusCode)
	}
	resp = f.do(t, "GET", "/quizzes/assigned", f.token(t, user), nil)
	list = nil
	decodeBody(t, resp, &list)
	if len(list) != 0 {
		t.Fatalf("toggled-off quiz still assigned: %+v", list)
	}
}

func TestQuizViewSanitizedForUsers(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "E1", "Ada", "ada@example.com", false)
	admin := f.createUser(t, "E2", "Root", "root@example.com", true)
	q := f.seedQuiz(t, user.ID)

	resp := f.do(t, "GET", fmt.Sprintf("/quizzes/%d", q.ID), f.token(t, user), nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get code = %d", resp.StatusCode)
	}
	var got quiz.Quiz
	decodeBody(t, resp, &got)
	for i, question := range got.Questions {
		if question.CorrectIndex != -1 {
			t.Fatalf("question %d leaked answer key", i)
		}
	}

	// Admins see the key.
	resp = f.do(t, "GET", fmt.Sprintf("/quizzes/%d", q.ID), f.token(t, admin), nil)
	decodeBody(t, resp, &got)
	if got.Questions[0].CorrectIndex != 2 {
		t.Fatal("admin view should keep the answer key")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "E1", "Ada", "ada@example.com", false)

	resp := f.do(t, "POST", "/auth/forgot-password", "", map[string]any{"email": "ada@example.com"})
	if resp.StatusCode != 200 {
		t.Fatalf("forgot code = %d", resp.StatusCode)
	}

	// Plant a token directly and finish the loop the way the emailed link
	// would.
	u, err := f.deps.Users.UserByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := f.deps.Users.IssueResetToken(context.Background(), u.ID, "tok-test", time.Now().Add(30*time.Minute)); err != nil {
		t.Fatalf("issue token: %v", err)
	}
	resp = f.do(t, "POST", "/auth/reset-password", "", map[string]any{
		"token":        "tok-test",
		"new_password": "changed123",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("reset code = %d", resp.StatusCode)
	}

	// The new password logs in; the token is spent.
	resp = f.do(t, "POST", "/auth/login", "", map[string]any{"email": "ada@example.com", "password": "changed123"})
	if resp.StatusCode != 200 {
		t.Fatalf("login after reset code = %d", resp.StatusCode)
	}
	resp = f.do(t, "POST", "/auth/reset-password", "", map[string]any{
		"token":        "tok-test",
		"new_password": "again12345",
	})
	if resp.StatusCode != 404 {
		t.Fatalf("spent token code = %d, want 404", resp.StatusCode)
	}

	resp = f.do(t, "POST", "/auth/forgot-password", "", map[string]any{"email": "nobody@example.com"})
	if resp.StatusCode != 404 {
		t.Fatalf("unknown email code = %d, want 404", resp.StatusCode)
	}
}

func TestListSubmissionsByQuiz(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "E1", "Ada", "ada@example.com", false)
	admin := f.createUser(t, "E2", "Root", "root@example.com", true)
	q := f.seedQuiz(t, user.ID)
	other := f.seedQuiz(t, user.ID)

	ctx := context.Background()
	if _, err := f.deps.Coord.Start(ctx, user.ID, false, q.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.deps.Coord.Submit(ctx, user.ID, q.ID, map[string]int{"0": 2}, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	adminToken := f.token(t, admin)
	resp := f.do(t, "GET", fmt.Sprintf("/submissions?quiz=%d", q.ID), adminToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("filtered list code = %d", resp.StatusCode)
	}
	var rows []struct {
		QuizID   int64  `json:"quiz_id"`
		UserName string `json:"user_name"`
	}
	decodeBody(t, resp, &rows)
	if len(rows) != 1 || rows[0].QuizID != q.ID || rows[0].UserName != "Ada" {
		t.Fatalf("filtered rows = %+v", rows)
	}

	// The other quiz has no attempts yet.
	resp = f.do(t, "GET", fmt.Sprintf("/submissions?quiz=%d", other.ID), adminToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("empty list code = %d", resp.StatusCode)
	}
	rows = nil
	decodeBody(t, resp, &rows)
	if len(rows) != 0 {
		t.Fatalf("empty quiz rows = %+v", rows)
	}

	// Unfiltered listing still serves the recent feed.
	resp = f.do(t, "GET", "/submissions", adminToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("unfiltered list code = %d", resp.StatusCode)
	}
	rows = nil
	decodeBody(t, resp, &rows)
	if len(rows) != 1 {
		t.Fatalf("unfiltered rows = %+v", rows)
	}

	resp = f.do(t, "GET", "/submissions?quiz=999", adminToken, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("unknown quiz code = %d, want 404", resp.StatusCode)
	}
	resp = f.do(t, "GET", fmt.Sprintf("/submissions?quiz=%d", q.ID), f.token(t, user), nil)
	if resp.StatusCode != 403 {
		t.Fatalf("non-admin list code = %d, want 403", resp.StatusCode)
	}
}

func TestBulkUsersUpsert(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "E0", "Root", "root@example.com", true)
	f.createUser(t, "E1", "Ada", "ada@example.com", false)
	adminToken := f.token(t, admin)

	resp := f.do(t, "POST", "/admin/users/bulk", adminToken, []map[string]any{
		{"employee_id": "E1", "full_name": "Ada Lovelace", "email": "ada@example.com", "password": "rotated123"},
		{"employee_id": "E2", "full_name": "Ben", "email": "ben@example.com", "password": "newpass123"},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("bulk code = %d", resp.StatusCode)
	}
	var result struct {
		Inserted int `json:"inserted"`
		Updated  int `json:"updated"`
	}
	decodeBody(t, resp, &result)
	if result.Inserted != 1 || result.Updated != 1 {
		t.Fatalf("bulk result = %+v, want 1 inserted 1 updated", result)
	}

	// The existing row was updated in place, password included.
	u, err := f.deps.Users.UserByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.FullName != "Ada Lovelace" {
		t.Fatalf("full name = %q", u.FullName)
	}
	resp = f.do(t, "POST", "/auth/login", "", map[string]any{"email": "ada@example.com", "password": "rotated123"})
	if resp.StatusCode != 200 {
		t.Fatalf("login after rotate code = %d", resp.StatusCode)
	}

	// A row without a password keeps the existing hash.
	resp = f.do(t, "POST", "/admin/users/bulk", adminToken, []map[string]any{
		{"employee_id": "E2", "full_name": "Benjamin", "email": "ben@example.com"},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("second bulk code = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &result)
	if result.Inserted != 0 || result.Updated != 1 {
		t.Fatalf("second bulk result = %+v", result)
	}
	resp = f.do(t, "POST", "/auth/login", "", map[string]any{"email": "ben@example.com", "password": "newpass123"})
	if resp.StatusCode != 200 {
		t.Fatalf("login after rename code = %d", resp.StatusCode)
	}

	// New rows still require a password.
	resp = f.do(t, "POST", "/admin/users/bulk", adminToken, []map[string]any{
		{"employee_id": "E3", "full_name": "Cleo", "email": "cleo@example.com"},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("passwordless insert code = %d, want 400", resp.StatusCode)
	}
}

func TestGoogleLoginMountedAtAuthLogin(t *testing.T) {
	t.Setenv("ENABLE_GOOGLE_AUTH", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	f := newFixture(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	for _, path := range []string{"/auth/login", "/auth/google/login"} {
		resp, err := client.Get(f.server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("%s code = %d, want 302", path, resp.StatusCode)
		}
		loc := resp.Header.Get("Location")
		if !strings.Contains(loc, "accounts.google.com") {
			t.Fatalf("%s location = %q", path, loc)
		}
	}
}
