package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quizdeck/quizdeck/internal/identity"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewAuthService("test-secret")
	u := identity.User{
		ID:         4,
		EmployeeID: "E4",
		FullName:   "Dev",
		Email:      "dev@example.com",
		IsAdmin:    true,
	}

	token, err := svc.IssueJWT(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != u.Email {
		t.Fatalf("sub = %q, want %q", claims.Subject, u.Email)
	}
	if !claims.IsAdmin || claims.EmployeeID != "E4" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, err := NewAuthService("key-one").IssueJWT(identity.User{Email: "x@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewAuthService("key-two").Parse(token); err == nil {
		t.Fatal("token signed with another key must not parse")
	}
}

func TestJWTMiddleware(t *testing.T) {
	users := identity.NewInMemoryStore()
	u, err := users.CreateUser(context.Background(), identity.User{
		EmployeeID:   "E1",
		FullName:     "Ada",
		Email:        "ada@example.com",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	svc := NewAuthService("test-secret")
	var seen identity.User
	handler := JWTMiddleware(svc, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(200)
	}))

	// No header at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != 401 {
		t.Fatalf("missing header code = %d, want 401", rec.Code)
	}

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	handler.ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Fatalf("bad token code = %d, want 401", rec.Code)
	}

	// Valid token for a deleted account.
	ghost, err := svc.IssueJWT(identity.User{Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	handler.ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Fatalf("unknown subject code = %d, want 401", rec.Code)
	}

	// The happy path resolves the stored user, not the claims.
	token, err := svc.IssueJWT(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if seen.ID != u.ID || seen.FullName != "Ada" {
		t.Fatalf("context user = %+v", seen)
	}
}
