package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const attemptCols = `id, user_id, quiz_id, started_at, submitted_at, time_taken, score, correct_count, incorrect_count, not_attempted_count, answers_json`

func (s *SQLStore) Create(ctx context.Context, a Attempt) (Attempt, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO submissions (user_id, quiz_id, started_at, time_taken) VALUES ($1,$2,$3,0) RETURNING id`,
		a.UserID, a.QuizID, a.StartedAt).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Attempt{}, ErrDuplicate
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) ByID(ctx context.Context, id int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM submissions WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) ByUserQuiz(ctx context.Context, userID, quizID int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM submissions WHERE user_id=$1 AND quiz_id=$2`, userID, quizID)
	return scanAttempt(row)
}

// Finalize writes the one-time transition to submitted. The WHERE clause
// guards the state machine in the store itself: zero rows updated means the
// row was already finalized (or gone) and the caller must not score twice.
func (s *SQLStore) Finalize(ctx context.Context, a Attempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions
		 SET submitted_at=$1, started_at=$2, time_taken=$3, score=$4, correct_count=$5, incorrect_count=$6, not_attempted_count=$7, answers_json=$8
		 WHERE id=$9 AND submitted_at IS NULL`,
		a.SubmittedAt, a.StartedAt, a.TimeTaken, a.Score, a.CorrectCount, a.IncorrectCount, a.NotAttemptedCount, string(aj), a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadySubmitted
	}
	return nil
}

func (s *SQLStore) ListByUser(ctx context.Context, userID int64) ([]Attempt, error) {
	return s.list(ctx, `SELECT `+attemptCols+` FROM submissions WHERE user_id=$1 ORDER BY started_at DESC`, userID)
}

func (s *SQLStore) ListByQuiz(ctx context.Context, quizID int64) ([]Attempt, error) {
	return s.list(ctx, `SELECT `+attemptCols+` FROM submissions WHERE quiz_id=$1`, quizID)
}

func (s *SQLStore) FinalizedByQuiz(ctx context.Context, quizID int64) ([]Attempt, error) {
	return s.list(ctx,
		`SELECT `+attemptCols+` FROM submissions
		 WHERE quiz_id=$1 AND submitted_at IS NOT NULL
		 ORDER BY score DESC, time_taken ASC`, quizID)
}

func (s *SQLStore) AttemptedQuizIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT quiz_id FROM submissions WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	return s.list(ctx,
		`SELECT `+attemptCols+` FROM submissions
		 WHERE submitted_at IS NOT NULL ORDER BY submitted_at DESC LIMIT $1`, int64(limit))
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (Attempt, error) {
	var a Attempt
	var submitted sql.NullInt64
	var score, correct, incorrect, notAttempted sql.NullInt64
	var ajson string
	err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.StartedAt, &submitted, &a.TimeTaken,
		&score, &correct, &incorrect, &notAttempted, &ajson)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	if submitted.Valid {
		a.SubmittedAt = &submitted.Int64
	}
	a.Score = nullInt(score)
	a.CorrectCount = nullInt(correct)
	a.IncorrectCount = nullInt(incorrect)
	a.NotAttemptedCount = nullInt(notAttempted)
	if ajson != "" {
		if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
			a.Answers = nil
		}
	}
	return a, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
