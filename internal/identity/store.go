package identity

import (
	"context"
	"time"
)

// Store owns user records, groups, and password-reset tokens.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UsersByEmails(ctx context.Context, emails []string) ([]User, error)
	UsersByIDs(ctx context.Context, ids []int64) (map[int64]User, error)
	ListUsers(ctx context.Context, includeAdmins bool) ([]User, error)
	// UpdateUser overwrites employee_id, full_name, and password_hash for the
	// row with u.ID.
	UpdateUser(ctx context.Context, u User) error
	SetPassword(ctx context.Context, userID int64, passwordHash string) error
	SetAdmin(ctx context.Context, email string, isAdmin bool) error

	CreateGroup(ctx context.Context, name string, userIDs []int64) (int64, error)
	ListGroups(ctx context.Context) ([]Group, error)
	GroupMemberEmails(ctx context.Context, groupID int64) ([]string, error)
	GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	ReplaceGroupMembers(ctx context.Context, groupID int64, userIDs []int64) error

	IssueResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	// ConsumeResetToken validates and deletes the token, returning the owning
	// user id. Tokens are single-use; expired tokens stay inert in the table.
	ConsumeResetToken(ctx context.Context, token string, now time.Time) (int64, error)
}
