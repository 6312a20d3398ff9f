package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"cyberlab/internal/models"
)

// MemUserStore — режим без БД (как и остальные in-memory хранилища).
type MemUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
	next  uint
}

func NewMemUserStore() *MemUserStore {
	return &MemUserStore{users: make(map[string]*models.User)}
}

func (m *MemUserStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return ErrEmailTaken
	}
	m.next++
	u.ID = m.next
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *MemUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemUserStore) List(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemUserStore) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; !ok {
		return ErrUserNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *MemUserStore) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, email)
	return nil
}

func (m *MemUserStore) TouchLastLogin(_ context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return ErrUserNotFound
	}
	t := at
	u.LastLogin = &t
	return nil
}
