package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const quizCols = `id, title, description, questions_json, time_limit, is_active, manual_override_active, active_till, created_at, source_quiz_id`

func (s *SQLStore) Create(ctx context.Context, q Quiz) (Quiz, error) {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return Quiz{}, err
	}
	q.CreatedAt = time.Now()
	var till *int64
	if q.ActiveTill != nil {
		v := q.ActiveTill.Unix()
		till = &v
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO quizzes (title, description, questions_json, time_limit, is_active, manual_override_active, active_till, created_at, source_quiz_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		q.Title, q.Description, string(qj), q.TimeLimit, q.IsActive, q.ManualOverrideActive, till, q.CreatedAt.Unix(), q.SourceQuizID).Scan(&q.ID)
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE id=$1`, id)
	q, err := scanQuiz(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	return q, err
}

func (s *SQLStore) List(ctx context.Context, now time.Time) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quizCols+` FROM quizzes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Lazy sweep: expiry is only observed, and persisted, on listing.
	for i, q := range out {
		if q.Expired(now) {
			if _, err := s.db.ExecContext(ctx, `UPDATE quizzes SET is_active=FALSE WHERE id=$1`, q.ID); err != nil {
				return nil, err
			}
			out[i].IsActive = false
		}
	}
	return out, nil
}

func (s *SQLStore) Toggle(ctx context.Context, id int64) (Quiz, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	q.IsActive = !q.IsActive
	q.ManualOverrideActive = true
	_, err = s.db.ExecContext(ctx,
		`UPDATE quizzes SET is_active=$1, manual_override_active=TRUE WHERE id=$2`, q.IsActive, id)
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) Grant(ctx context.Context, userIDs []int64, quizID int64) error {
	for _, uid := range userIDs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO quiz_access (user_id, quiz_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, uid, quizID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) HasAccess(ctx context.Context, userID, quizID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM quiz_access WHERE user_id=$1 AND quiz_id=$2`, userID, quizID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) GrantedUserIDs(ctx context.Context, quizID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM quiz_access WHERE quiz_id=$1`, quizID)
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

func (s *SQLStore) Assigned(ctx context.Context, userID int64, now time.Time) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.title, q.description, q.questions_json, q.time_limit, q.is_active, q.manual_override_active, q.active_till, q.created_at, q.source_quiz_id
		 FROM quizzes q JOIN quiz_access qa ON qa.quiz_id=q.id
		 WHERE qa.user_id=$1 ORDER BY q.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		if q.ActiveAt(now) {
			out = append(out, q)
		}
	}
	return out, rows.Err()
}

func (s *SQLStore) Templates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, questions_json FROM quiz_templates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) Template(ctx context.Context, id int64) (Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, questions_json FROM quiz_templates WHERE id=$1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

func (s *SQLStore) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return Template{}, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO quiz_templates (title, questions_json) VALUES ($1,$2) RETURNING id`,
		t.Title, string(qj)).Scan(&t.ID)
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *SQLStore) AddFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO feedbacks (user_id, quiz_id, feedback_text) VALUES ($1,$2,$3) RETURNING id`,
		f.UserID, f.QuizID, f.Text).Scan(&f.ID)
	if err != nil {
		return Feedback{}, err
	}
	return f, nil
}

func (s *SQLStore) ListFeedback(ctx context.Context, quizID int64) ([]Feedback, error) {
	q := `SELECT f.id, f.user_id, f.quiz_id, f.feedback_text, u.full_name, qz.title
	      FROM feedbacks f
	      JOIN users u ON u.id=f.user_id
	      JOIN quizzes qz ON qz.id=f.quiz_id`
	args := []any{}
	if quizID != 0 {
		q += ` WHERE f.quiz_id=$1`
		args = append(args, quizID)
	}
	q += ` ORDER BY f.id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.QuizID, &f.Text, &f.UserName, &f.Title); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row scanner) (Quiz, error) {
	var q Quiz
	var qjson string
	var till, created sql.NullInt64
	var source sql.NullInt64
	if err := row.Scan(&q.ID, &q.Title, &q.Description, &qjson, &q.TimeLimit,
		&q.IsActive, &q.ManualOverrideActive, &till, &created, &source); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, err
	}
	if till.Valid {
		t := time.Unix(till.Int64, 0).UTC()
		q.ActiveTill = &t
	}
	if created.Valid {
		q.CreatedAt = time.Unix(created.Int64, 0).UTC()
	}
	if source.Valid {
		q.SourceQuizID = &source.Int64
	}
	return q, nil
}

func scanTemplate(row scanner) (Template, error) {
	var t Template
	var qjson string
	if err := row.Scan(&t.ID, &t.Title, &qjson); err != nil {
		return Template{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return Template{}, err
	}
	return t, nil
}
