package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"cyberlab/internal/models"
)

type ScanStore struct{ db *gorm.DB }

func NewScanStore(db *gorm.DB) *ScanStore { return &ScanStore{db: db} }

func (s *ScanStore) Save(ctx context.Context, rec *models.ScanRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// ListByUser — свежие записи первыми; limit <= 0 значит без лимита.
func (s *ScanStore) ListByUser(ctx context.Context, email string, limit int) ([]models.ScanRecord, error) {
	q := s.db.WithContext(ctx).Where("user_email=?", email).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []models.ScanRecord
	err := q.Find(&recs).Error
	return recs, err
}

// MemScanStore — история сканирований в памяти.
type MemScanStore struct {
	mu   sync.RWMutex
	recs []models.ScanRecord
	next uint
}

func NewMemScanStore() *MemScanStore { return &MemScanStore{} }

func (m *MemScanStore) Save(_ context.Context, rec *models.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	rec.ID = m.next
	rec.CreatedAt = time.Now().UTC()
	m.recs = append(m.recs, *rec)
	return nil
}

func (m *MemScanStore) ListByUser(_ context.Context, email string, limit int) ([]models.ScanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ScanRecord, 0)
	for _, r := range m.recs {
		if r.UserEmail == email {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
