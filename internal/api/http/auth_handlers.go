package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/mail"
)

func SignupHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EmployeeID string `json:"employee_id"`
			FullName   string `json:"full_name"`
			Email      string `json:"email"`
			Password   string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || req.Password == "" || req.FullName == "" {
			http.Error(w, "full_name, email and password required", 400)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			writeErr(w, err)
			return
		}
		u, err := users.CreateUser(r.Context(), identity.User{
			EmployeeID:   req.EmployeeID,
			FullName:     req.FullName,
			Email:        req.Email,
			PasswordHash: string(hash),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 201, u)
	}
}

func LoginHandler(a *authmw.AuthService, users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		u, err := users.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			http.Error(w, "invalid credentials", 401)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", 401)
			return
		}
		token, err := a.IssueJWT(u)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"id":           u.ID,
			"employee_id":  u.EmployeeID,
			"full_name":    u.FullName,
			"email":        u.Email,
			"is_admin":     u.IsAdmin,
		})
	}
}

// ForgotPasswordHandler issues a single-use reset token and mails the link.
// Delivery happens off the request path; the caller only learns the token
// was created.
func ForgotPasswordHandler(users identity.Store, sender mail.Sender, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		u, err := users.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			writeErr(w, err)
			return
		}
		token := uuid.NewString()
		ttl := config.TTLDuration(cfg.ResetTokenTTL, 30*time.Minute)
		if err := users.IssueResetToken(r.Context(), u.ID, token, time.Now().Add(ttl)); err != nil {
			writeErr(w, err)
			return
		}
		link := strings.TrimSuffix(cfg.FrontendURL, "/") + "/reset-password?token=" + token
		mail.Dispatch(sender, mail.Message{
			To:      []string{u.Email},
			Subject: "Reset your password",
			Body: fmt.Sprintf("Hi %s,\n\nUse the link below to reset your password. It expires in %d minutes.\n\n%s\n",
				u.FullName, int(ttl.Minutes()), link),
		})
		writeJSON(w, 200, map[string]string{"message": "password reset email sent"})
	}
}

func ResetPasswordHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token       string `json:"token"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Token == "" || req.NewPassword == "" {
			http.Error(w, "token and new_password required", 400)
			return
		}
		userID, err := users.ConsumeResetToken(r.Context(), req.Token, time.Now())
		if err != nil {
			writeErr(w, err)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := users.SetPassword(r.Context(), userID, string(hash)); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]string{"message": "password updated"})
	}
}
