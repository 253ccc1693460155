package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizdeck/quizdeck/internal/identity"
)

// TokenTTL is the fixed bearer-token lifetime.
const TokenTTL = 30 * time.Minute

type AuthService struct{ hmac []byte }

func NewAuthService(secret string) *AuthService { return &AuthService{hmac: []byte(secret)} }

type Claims struct {
	IsAdmin    bool   `json:"is_admin"`
	EmployeeID string `json:"employee_id"`
	jwt.RegisteredClaims
}

// IssueJWT mints a bearer token for the user: sub is the email, expiry is
// fixed at TokenTTL.
func (a *AuthService) IssueJWT(u identity.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		IsAdmin:    u.IsAdmin,
		EmployeeID: u.EmployeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			Issuer:    "quizdeck",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// JWTMiddleware parses the bearer token and resolves the user record so
// downstream handlers get an authoritative admin flag, not the claim's.
func JWTMiddleware(a *AuthService, users identity.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			u, err := users.UserByEmail(r.Context(), claims.Subject)
			if err != nil {
				http.Error(w, "unknown subject", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
