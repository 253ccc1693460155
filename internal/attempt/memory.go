package attempt

import (
	"context"
	"sort"
	"sync"
)

type pairKey struct {
	userID int64
	quizID int64
}

type memoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	attempts map[int64]Attempt
	byPair   map[pairKey]int64
}

func NewInMemoryStore() Store {
	return &memoryStore{
		attempts: map[int64]Attempt{},
		byPair:   map[pairKey]int64{},
	}
}

func (m *memoryStore) Create(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey{a.UserID, a.QuizID}
	if _, ok := m.byPair[key]; ok {
		return Attempt{}, ErrDuplicate
	}
	m.nextID++
	a.ID = m.nextID
	m.attempts[a.ID] = a
	m.byPair[key] = a.ID
	return a, nil
}

func (m *memoryStore) ByID(_ context.Context, id int64) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) ByUserQuiz(_ context.Context, userID, quizID int64) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPair[pairKey{userID, quizID}]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return m.attempts[id], nil
}

func (m *memoryStore) Finalize(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.attempts[a.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.SubmittedAt != nil {
		return ErrAlreadySubmitted
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID int64) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	return out, nil
}

func (m *memoryStore) ListByQuiz(_ context.Context, quizID int64) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.QuizID == quizID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) FinalizedByQuiz(_ context.Context, quizID int64) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.QuizID == quizID && a.SubmittedAt != nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if *out[i].Score != *out[j].Score {
			return *out[i].Score > *out[j].Score
		}
		return out[i].TimeTaken < out[j].TimeTaken
	})
	return out, nil
}

func (m *memoryStore) AttemptedQuizIDs(_ context.Context, userID int64) (map[int64]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[int64]bool{}
	for _, a := range m.attempts {
		if a.UserID == userID {
			out[a.QuizID] = true
		}
	}
	return out, nil
}

func (m *memoryStore) Recent(_ context.Context, limit int) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.SubmittedAt != nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].SubmittedAt > *out[j].SubmittedAt })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
