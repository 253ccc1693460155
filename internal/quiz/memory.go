package quiz

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	quizzes   map[int64]Quiz
	access    map[int64]map[int64]struct{} // quizID -> userIDs
	templates map[int64]Template
	feedback  []Feedback
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes:   map[int64]Quiz{},
		access:    map[int64]map[int64]struct{}{},
		templates: map[int64]Template{},
	}
}

func (m *memoryStore) Create(_ context.Context, q Quiz) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	q.CreatedAt = time.Now()
	m.quizzes[q.ID] = q
	return q, nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) List(_ context.Context, now time.Time) ([]Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quiz
	for id, q := range m.quizzes {
		if q.Expired(now) {
			q.IsActive = false
			m.quizzes[id] = q
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) Toggle(_ context.Context, id int64) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	q.IsActive = !q.IsActive
	q.ManualOverrideActive = true
	m.quizzes[id] = q
	return q, nil
}

func (m *memoryStore) Grant(_ context.Context, userIDs []int64, quizID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.access[quizID]
	if !ok {
		set = map[int64]struct{}{}
		m.access[quizID] = set
	}
	for _, uid := range userIDs {
		set[uid] = struct{}{}
	}
	return nil
}

func (m *memoryStore) HasAccess(_ context.Context, userID, quizID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.access[quizID][userID]
	return ok, nil
}

func (m *memoryStore) GrantedUserIDs(_ context.Context, quizID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []int64
	for uid := range m.access[quizID] {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memoryStore) Assigned(_ context.Context, userID int64, now time.Time) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Quiz
	for quizID, users := range m.access {
		if _, ok := users[userID]; !ok {
			continue
		}
		q := m.quizzes[quizID]
		if q.ActiveAt(now) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) Templates(_ context.Context) ([]Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Template
	for _, t := range m.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) Template(_ context.Context, id int64) (Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return t, nil
}

func (m *memoryStore) CreateTemplate(_ context.Context, t Template) (Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.templates[t.ID] = t
	return t, nil
}

func (m *memoryStore) AddFeedback(_ context.Context, f Feedback) (Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	f.ID = m.nextID
	m.feedback = append(m.feedback, f)
	return f, nil
}

func (m *memoryStore) ListFeedback(_ context.Context, quizID int64) ([]Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Feedback
	for i := len(m.feedback) - 1; i >= 0; i-- {
		f := m.feedback[i]
		if quizID != 0 && f.QuizID != quizID {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
