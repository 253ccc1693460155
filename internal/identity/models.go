package identity

import "errors"

var (
	ErrNotFound     = errors.New("user not found")
	ErrDuplicate    = errors.New("user already registered")
	ErrTokenExpired = errors.New("reset token expired")
)

type User struct {
	ID           int64  `json:"id"`
	EmployeeID   string `json:"employee_id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
}

// Role maps the admin flag onto the RBAC vocabulary.
func (u User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
