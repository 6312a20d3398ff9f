package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cyberlab/internal/models"
)

type CodeStore struct{ db *gorm.DB }

func NewCodeStore(db *gorm.DB) *CodeStore { return &CodeStore{db: db} }

// Put — upsert по email: повторная выдача перезаписывает прежний код,
// записи не накапливаются (last-writer-wins).
func (s *CodeStore) Put(ctx context.Context, email, code string, expiry time.Time) error {
	rec := models.OneTimeCode{Email: email, Code: code, Expiry: expiry, CreatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "expiry", "created_at"}),
	}).Create(&rec).Error
}

// Claim — одиночный условный DELETE вместо find-then-delete: два
// конкурентных Claim не могут оба получить true на одном коде.
func (s *CodeStore) Claim(ctx context.Context, email, code string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("email=? AND code=? AND expiry > ?", email, code, now).
		Delete(&models.OneTimeCode{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// истёкшие записи подчищаем при обнаружении
	s.db.WithContext(ctx).Where("email=? AND expiry <= ?", email, now).
		Delete(&models.OneTimeCode{})
	return false, nil
}
