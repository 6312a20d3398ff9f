package repo

import (
	"context"
	"sync"
	"time"
)

type memCode struct {
	code   string
	expiry time.Time
}

// MemCodeStore — одноразовые коды в памяти (режим без БД и тесты).
type MemCodeStore struct {
	mu    sync.Mutex
	codes map[string]memCode
}

func NewMemCodeStore() *MemCodeStore {
	return &MemCodeStore{codes: make(map[string]memCode)}
}

func (m *MemCodeStore) Put(_ context.Context, email, code string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = memCode{code: code, expiry: expiry}
	return nil
}

func (m *MemCodeStore) Claim(_ context.Context, email, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[email]
	if !ok {
		return false, nil
	}
	if !now.Before(rec.expiry) {
		delete(m.codes, email)
		return false, nil
	}
	if rec.code != code {
		return false, nil
	}
	delete(m.codes, email)
	return true, nil
}
