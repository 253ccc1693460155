package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	var exist int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE employee_id=$1 OR email=$2`, u.EmployeeID, u.Email).Scan(&exist)
	switch {
	case err == nil:
		return User{}, ErrDuplicate
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (employee_id, full_name, email, password_hash, is_admin)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		u.EmployeeID, u.FullName, u.Email, u.PasswordHash, u.IsAdmin).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, employee_id, full_name, email, password_hash, is_admin FROM users WHERE email=$1`, email))
}

func (s *SQLStore) UserByID(ctx context.Context, id int64) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, employee_id, full_name, email, password_hash, is_admin FROM users WHERE id=$1`, id))
}

func (s *SQLStore) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.EmployeeID, &u.FullName, &u.Email, &u.PasswordHash, &u.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) UsersByEmails(ctx context.Context, emails []string) ([]User, error) {
	out := make([]User, 0, len(emails))
	for _, e := range emails {
		u, err := s.UserByEmail(ctx, e)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *SQLStore) UsersByIDs(ctx context.Context, ids []int64) (map[int64]User, error) {
	out := make(map[int64]User, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		u, err := s.UserByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = u
	}
	return out, nil
}

func (s *SQLStore) ListUsers(ctx context.Context, includeAdmins bool) ([]User, error) {
	q := `SELECT id, employee_id, full_name, email, password_hash, is_admin FROM users`
	if !includeAdmins {
		q += ` WHERE is_admin=FALSE`
	}
	q += ` ORDER BY full_name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.EmployeeID, &u.FullName, &u.Email, &u.PasswordHash, &u.IsAdmin); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateUser(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET employee_id=$1, full_name=$2, password_hash=$3 WHERE id=$4`,
		u.EmployeeID, u.FullName, u.PasswordHash, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) SetPassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, passwordHash, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_admin=$1 WHERE email=$2`, isAdmin, email)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) CreateGroup(ctx context.Context, name string, userIDs []int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	var groupID int64
	if err = tx.QueryRowContext(ctx, `INSERT INTO groups (name) VALUES ($1) RETURNING id`, name).Scan(&groupID); err != nil {
		return 0, err
	}
	for _, uid := range userIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, groupID, uid); err != nil {
			return 0, err
		}
	}
	err = tx.Commit()
	return groupID, err
}

func (s *SQLStore) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLStore) GroupMemberEmails(ctx context.Context, groupID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.email FROM users u JOIN group_members gm ON gm.user_id=u.id WHERE gm.group_id=$1 ORDER BY u.email`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id=$1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ReplaceGroupMembers is the re-assignment sweep: membership is rebuilt from
// scratch on every update.
func (s *SQLStore) ReplaceGroupMembers(ctx context.Context, groupID int64, userIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1`, groupID); err != nil {
		return err
	}
	for _, uid := range userIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, groupID, uid); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func (s *SQLStore) IssueResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES ($1,$2,$3)`,
		userID, token, expiresAt.Unix())
	return err
}

func (s *SQLStore) ConsumeResetToken(ctx context.Context, token string, now time.Time) (int64, error) {
	var userID, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM password_reset_tokens WHERE token=$1`, token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if now.Unix() > expiresAt {
		return 0, ErrTokenExpired
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token=$1`, token); err != nil {
		return 0, err
	}
	return userID, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
