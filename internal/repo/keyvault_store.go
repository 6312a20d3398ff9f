package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cyberlab/internal/models"
)

type KeyvaultStore struct{ db *gorm.DB }

func NewKeyvaultStore(db *gorm.DB) *KeyvaultStore { return &KeyvaultStore{db: db} }

func (s *KeyvaultStore) CreateKey(ctx context.Context, k *models.Key) error {
	return s.db.WithContext(ctx).Create(k).Error
}

func (s *KeyvaultStore) GetKey(ctx context.Context, email, keyID string) (*models.Key, error) {
	var k models.Key
	err := s.db.WithContext(ctx).Where("user_email=? AND key_id=?", email, keyID).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *KeyvaultStore) ListKeys(ctx context.Context, email string) ([]models.Key, error) {
	var keys []models.Key
	err := s.db.WithContext(ctx).Where("user_email=?", email).
		Order("created_at desc").Find(&keys).Error
	return keys, err
}

func (s *KeyvaultStore) UpdateKey(ctx context.Context, k *models.Key) error {
	return s.db.WithContext(ctx).Save(k).Error
}

// DeleteKey — soft delete (gorm.DeletedAt); история версий сохраняется.
func (s *KeyvaultStore) DeleteKey(ctx context.Context, email, keyID string) error {
	res := s.db.WithContext(ctx).Where("user_email=? AND key_id=?", email, keyID).
		Delete(&models.Key{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *KeyvaultStore) CreateCert(ctx context.Context, c *models.Certificate) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *KeyvaultStore) GetCert(ctx context.Context, email, certID string) (*models.Certificate, error) {
	var c models.Certificate
	err := s.db.WithContext(ctx).Where("user_email=? AND cert_id=?", email, certID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *KeyvaultStore) ListCerts(ctx context.Context, email string) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := s.db.WithContext(ctx).Where("user_email=?", email).
		Order("created_at desc").Find(&certs).Error
	return certs, err
}

func (s *KeyvaultStore) KeyNameExists(ctx context.Context, email, name string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Key{}).
		Where("user_email=? AND key_name=?", email, name).Count(&n).Error
	return n > 0, err
}

func (s *KeyvaultStore) CertNameExists(ctx context.Context, email, name string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("user_email=? AND cert_name=?", email, name).Count(&n).Error
	return n > 0, err
}
