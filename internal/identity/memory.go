package identity

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryStore mirrors SQLStore semantics for tests and offline runs.
type memoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]User
	groups  map[int64]Group
	members map[int64][]int64 // groupID -> userIDs
	tokens  map[string]resetToken
}

type resetToken struct {
	userID    int64
	expiresAt time.Time
}

func NewInMemoryStore() Store {
	return &memoryStore{
		users:   map[int64]User{},
		groups:  map[int64]Group{},
		members: map[int64][]int64{},
		tokens:  map[string]resetToken{},
	}
}

func (m *memoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.EmployeeID == u.EmployeeID || existing.Email == u.Email {
			return User{}, ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memoryStore) UserByID(_ context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memoryStore) UsersByEmails(ctx context.Context, emails []string) ([]User, error) {
	out := make([]User, 0, len(emails))
	for _, e := range emails {
		if u, err := m.UserByEmail(ctx, e); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryStore) UsersByIDs(ctx context.Context, ids []int64) (map[int64]User, error) {
	out := make(map[int64]User, len(ids))
	for _, id := range ids {
		if u, err := m.UserByID(ctx, id); err == nil {
			out[id] = u
		}
	}
	return out, nil
}

func (m *memoryStore) ListUsers(_ context.Context, includeAdmins bool) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for _, u := range m.users {
		if !includeAdmins && u.IsAdmin {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *memoryStore) UpdateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && other.EmployeeID == u.EmployeeID {
			return ErrDuplicate
		}
	}
	existing.EmployeeID = u.EmployeeID
	existing.FullName = u.FullName
	existing.PasswordHash = u.PasswordHash
	m.users[u.ID] = existing
	return nil
}

func (m *memoryStore) SetPassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[userID] = u
	return nil
}

func (m *memoryStore) SetAdmin(_ context.Context, email string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			u.IsAdmin = isAdmin
			m.users[id] = u
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryStore) CreateGroup(_ context.Context, name string, userIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.groups[id] = Group{ID: id, Name: name}
	m.members[id] = dedupe(userIDs)
	return id, nil
}

func (m *memoryStore) ListGroups(_ context.Context) ([]Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Group
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) GroupMemberEmails(ctx context.Context, groupID int64) ([]string, error) {
	m.mu.RLock()
	ids := append([]int64(nil), m.members[groupID]...)
	m.mu.RUnlock()
	var out []string
	for _, id := range ids {
		if u, err := m.UserByID(ctx, id); err == nil {
			out = append(out, u.Email)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryStore) GroupMemberIDs(_ context.Context, groupID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.members[groupID]...), nil
}

func (m *memoryStore) ReplaceGroupMembers(_ context.Context, groupID int64, userIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[groupID] = dedupe(userIDs)
	return nil
}

func (m *memoryStore) IssueResetToken(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = resetToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memoryStore) ConsumeResetToken(_ context.Context, token string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return 0, ErrNotFound
	}
	if now.After(t.expiresAt) {
		return 0, ErrTokenExpired
	}
	delete(m.tokens, token)
	return t.userID, nil
}

func dedupe(ids []int64) []int64 {
	seen := map[int64]struct{}{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
