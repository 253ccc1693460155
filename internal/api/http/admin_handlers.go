package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quizdeck/quizdeck/internal/attempt"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/mail"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

// CreateQuizHandler creates a quiz, either from inline questions or by
// instantiating a stored template. Duplicating an existing quiz records the
// lineage in source_quiz_id.
func CreateQuizHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title          string          `json:"title"`
			Description    string          `json:"description"`
			Questions      []quiz.Question `json:"questions"`
			TimeLimit      int64           `json:"time_limit"`
			IsActive       bool            `json:"is_active"`
			ActiveTill     string          `json:"active_till"`
			TemplateID     int64           `json:"template_id"`
			SourceQuizID   int64           `json:"source_quiz_id"`
			SaveAsTemplate bool            `json:"save_as_template"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Title == "" {
			http.Error(w, "title required", 400)
			return
		}

		q := quiz.Quiz{
			Title:       req.Title,
			Description: req.Description,
			Questions:   req.Questions,
			TimeLimit:   req.TimeLimit,
			IsActive:    req.IsActive,
		}
		if req.ActiveTill != "" {
			t, err := time.Parse(time.RFC3339, req.ActiveTill)
			if err != nil {
				http.Error(w, "active_till must be RFC3339", 400)
				return
			}
			q.ActiveTill = &t
		}
		switch {
		case req.TemplateID != 0:
			tpl, err := quizzes.Template(r.Context(), req.TemplateID)
			if err != nil {
				writeErr(w, err)
				return
			}
			q.Questions = tpl.Questions
		case req.SourceQuizID != 0:
			src, err := quizzes.Get(r.Context(), req.SourceQuizID)
			if err != nil {
				writeErr(w, err)
				return
			}
			q.Questions = src.Questions
			q.SourceQuizID = &req.SourceQuizID
		}
		if len(q.Questions) == 0 {
			http.Error(w, "questions required", 400)
			return
		}
		for i, question := range q.Questions {
			if len(question.Options) == 0 || question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
				http.Error(w, fmt.Sprintf("question %d: correct index out of range", i), 400)
				return
			}
		}

		created, err := quizzes.Create(r.Context(), q)
		if err != nil {
			writeErr(w, err)
			return
		}
		if req.SaveAsTemplate {
			if _, err := quizzes.CreateTemplate(r.Context(), quiz.Template{Title: q.Title, Questions: q.Questions}); err != nil {
				writeErr(w, err)
				return
			}
		}
		writeJSON(w, 201, created)
	}
}

// ToggleQuizHandler flips activation manually. The override is sticky: a
// toggled quiz no longer follows its window.
func ToggleQuizHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		q, err := quizzes.Toggle(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, q)
	}
}

func AssignQuizHandler(users identity.Store, quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		var req struct {
			Emails []string `json:"emails"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if len(req.Emails) == 0 {
			http.Error(w, "emails required", 400)
			return
		}
		if _, err := quizzes.Get(r.Context(), quizID); err != nil {
			writeErr(w, err)
			return
		}
		found, err := users.UsersByEmails(r.Context(), normalizeEmails(req.Emails))
		if err != nil {
			writeErr(w, err)
			return
		}
		ids := make([]int64, 0, len(found))
		for _, u := range found {
			ids = append(ids, u.ID)
		}
		if err := quizzes.Grant(r.Context(), ids, quizID); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"assigned": len(ids), "unknown": len(req.Emails) - len(ids)})
	}
}

func AssignQuizToGroupHandler(users identity.Store, quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		groupID, ok := urlID(r, "groupID")
		if !ok {
			http.Error(w, "bad group id", 400)
			return
		}
		if _, err := quizzes.Get(r.Context(), quizID); err != nil {
			writeErr(w, err)
			return
		}
		ids, err := users.GroupMemberIDs(r.Context(), groupID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := quizzes.Grant(r.Context(), ids, quizID); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"assigned": len(ids)})
	}
}

func AdminUsersHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeAdmins := r.URL.Query().Get("include_admins") == "true"
		out, err := users.ListUsers(r.Context(), includeAdmins)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, out)
	}
}

// QuizStatusHandler partitions the assigned users of a quiz into attempted
// and pending.
func QuizStatusHandler(users identity.Store, quizzes quiz.Store, attempts attempt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		q, err := quizzes.Get(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		granted, finalized, byID, err := assignmentStatus(r, users, quizzes, attempts, quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		attempted := []map[string]any{}
		pending := []map[string]any{}
		done := map[int64]attempt.Attempt{}
		for _, a := range finalized {
			done[a.UserID] = a
		}
		for _, id := range granted {
			u := byID[id]
			if a, ok := done[id]; ok {
				attempted = append(attempted, map[string]any{
					"employee_id": u.EmployeeID,
					"full_name":   u.FullName,
					"email":       u.Email,
					"score":       a.Score,
					"time_taken":  a.TimeTaken,
				})
			} else {
				pending = append(pending, map[string]any{
					"employee_id": u.EmployeeID,
					"full_name":   u.FullName,
					"email":       u.Email,
				})
			}
		}
		writeJSON(w, 200, map[string]any{
			"quiz_id":   q.ID,
			"title":     q.Title,
			"attempted": attempted,
			"pending":   pending,
		})
	}
}

// SendFollowupHandler mails a reminder to every assigned user who has not
// submitted yet.
func SendFollowupHandler(users identity.Store, quizzes quiz.Store, attempts attempt.Store, sender mail.Sender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := urlID(r, "quizID")
		if !ok {
			http.Error(w, "bad quiz id", 400)
			return
		}
		q, err := quizzes.Get(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		granted, finalized, byID, err := assignmentStatus(r, users, quizzes, attempts, quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		done := map[int64]bool{}
		for _, a := range finalized {
			done[a.UserID] = true
		}
		deadline := "soon"
		if q.ActiveTill != nil {
			deadline = "before " + q.ActiveTill.Format("Jan 2, 2006 15:04 MST")
		}
		sent := 0
		for _, id := range granted {
			if done[id] {
				continue
			}
			u := byID[id]
			if u.Email == "" {
				continue
			}
			mail.Dispatch(sender, mail.Message{
				To:      []string{u.Email},
				Subject: fmt.Sprintf("Reminder: %s is waiting for you", q.Title),
				Body: fmt.Sprintf("Hi %s,\n\nYou have not attempted the quiz %q yet. Please complete it %s.\n",
					u.FullName, q.Title, deadline),
			})
			sent++
		}
		writeJSON(w, 200, map[string]any{"reminders_sent": sent})
	}
}

func ListTemplatesHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := quizzes.Templates(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, out)
	}
}

func GetTemplateHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "templateID")
		if !ok {
			http.Error(w, "invalid template id", 400)
			return
		}
		t, err := quizzes.Template(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, t)
	}
}

func CreateTemplateHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quiz.Template
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Title == "" || len(req.Questions) == 0 {
			http.Error(w, "title and questions required", 400)
			return
		}
		t, err := quizzes.CreateTemplate(r.Context(), req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 201, t)
	}
}

func ListFeedbackHandler(quizzes quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var quizID int64
		if v := r.URL.Query().Get("quiz_id"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				http.Error(w, "bad quiz_id", 400)
				return
			}
			quizID = n
		}
		out, err := quizzes.ListFeedback(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, out)
	}
}

func CreateGroupHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string   `json:"name"`
			Emails []string `json:"emails"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Name == "" {
			http.Error(w, "name required", 400)
			return
		}
		found, err := users.UsersByEmails(r.Context(), normalizeEmails(req.Emails))
		if err != nil {
			writeErr(w, err)
			return
		}
		ids := make([]int64, 0, len(found))
		for _, u := range found {
			ids = append(ids, u.ID)
		}
		id, err := users.CreateGroup(r.Context(), req.Name, ids)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 201, map[string]any{"id": id, "name": req.Name, "members": len(ids)})
	}
}

func ListGroupsHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := users.ListGroups(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, out)
	}
}

func GroupMembersHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, ok := urlID(r, "groupID")
		if !ok {
			http.Error(w, "bad group id", 400)
			return
		}
		emails, err := users.GroupMemberEmails(r.Context(), groupID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"group_id": groupID, "emails": emails})
	}
}

func UpdateGroupMembersHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, ok := urlID(r, "groupID")
		if !ok {
			http.Error(w, "bad group id", 400)
			return
		}
		var req struct {
			Emails []string `json:"emails"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		found, err := users.UsersByEmails(r.Context(), normalizeEmails(req.Emails))
		if err != nil {
			writeErr(w, err)
			return
		}
		ids := make([]int64, 0, len(found))
		for _, u := range found {
			ids = append(ids, u.ID)
		}
		if err := users.ReplaceGroupMembers(r.Context(), groupID, ids); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"group_id": groupID, "members": len(ids)})
	}
}

func assignmentStatus(r *http.Request, users identity.Store, quizzes quiz.Store, attempts attempt.Store, quizID int64) ([]int64, []attempt.Attempt, map[int64]identity.User, error) {
	granted, err := quizzes.GrantedUserIDs(r.Context(), quizID)
	if err != nil {
		return nil, nil, nil, err
	}
	finalized, err := attempts.FinalizedByQuiz(r.Context(), quizID)
	if err != nil {
		return nil, nil, nil, err
	}
	byID, err := users.UsersByIDs(r.Context(), granted)
	if err != nil {
		return nil, nil, nil, err
	}
	return granted, finalized, byID, nil
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if s := strings.ToLower(strings.TrimSpace(e)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
