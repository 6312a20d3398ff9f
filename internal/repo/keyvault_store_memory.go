package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"cyberlab/internal/models"
)

// MemKeyvaultStore — ключи/сертификаты в памяти (режим без БД, тесты).
type MemKeyvaultStore struct {
	mu    sync.RWMutex
	keys  map[string]*models.Key         // key_id -> key
	certs map[string]*models.Certificate // cert_id -> cert
}

func NewMemKeyvaultStore() *MemKeyvaultStore {
	return &MemKeyvaultStore{
		keys:  make(map[string]*models.Key),
		certs: make(map[string]*models.Certificate),
	}
}

func (m *MemKeyvaultStore) CreateKey(_ context.Context, k *models.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	k.CreatedAt = now
	k.UpdatedAt = now
	cp := *k
	m.keys[k.KeyID] = &cp
	return nil
}

func (m *MemKeyvaultStore) GetKey(_ context.Context, email, keyID string) (*models.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.keys[keyID]
	if !ok || k.UserEmail != email {
		return nil, ErrKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *MemKeyvaultStore) ListKeys(_ context.Context, email string) ([]models.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Key, 0)
	for _, k := range m.keys {
		if k.UserEmail == email {
			out = append(out, *k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemKeyvaultStore) UpdateKey(_ context.Context, k *models.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[k.KeyID]; !ok {
		return ErrKeyNotFound
	}
	k.UpdatedAt = time.Now().UTC()
	cp := *k
	m.keys[k.KeyID] = &cp
	return nil
}

func (m *MemKeyvaultStore) DeleteKey(_ context.Context, email, keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[keyID]
	if !ok || k.UserEmail != email {
		return ErrKeyNotFound
	}
	delete(m.keys, keyID)
	return nil
}

func (m *MemKeyvaultStore) CreateCert(_ context.Context, c *models.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = time.Now().UTC()
	cp := *c
	m.certs[c.CertID] = &cp
	return nil
}

func (m *MemKeyvaultStore) GetCert(_ context.Context, email, certID string) (*models.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.certs[certID]
	if !ok || c.UserEmail != email {
		return nil, ErrCertNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemKeyvaultStore) ListCerts(_ context.Context, email string) ([]models.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Certificate, 0)
	for _, c := range m.certs {
		if c.UserEmail == email {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemKeyvaultStore) KeyNameExists(_ context.Context, email, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range m.keys {
		if k.UserEmail == email && k.KeyName == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemKeyvaultStore) CertNameExists(_ context.Context, email, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.certs {
		if c.UserEmail == email && c.CertName == name {
			return true, nil
		}
	}
	return false, nil
}
