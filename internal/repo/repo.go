package repo

import (
	"context"
	"errors"
	"time"

	"cyberlab/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrKeyNotFound  = errors.New("key not found")
	ErrCertNotFound = errors.New("certificate not found")
	ErrNameTaken    = errors.New("name already exists")
)

// Users — контракт хранилища учётных записей.
type Users interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, email string) error
	TouchLastLogin(ctx context.Context, email string, at time.Time) error
}

// Codes — хранилище одноразовых кодов.
// Put — upsert: на email всегда не больше одной живой записи.
// Claim — атомарное «найти-и-удалить»: true только если код совпал и не
// истёк; истёкшая запись удаляется как побочный эффект. Два почти
// одновременных Claim с одним кодом не могут оба вернуть true.
type Codes interface {
	Put(ctx context.Context, email, code string, expiry time.Time) error
	Claim(ctx context.Context, email, code string, now time.Time) (bool, error)
}

// Keyvault — ключи и сертификаты (soft-delete).
type Keyvault interface {
	CreateKey(ctx context.Context, k *models.Key) error
	GetKey(ctx context.Context, email, keyID string) (*models.Key, error)
	ListKeys(ctx context.Context, email string) ([]models.Key, error)
	UpdateKey(ctx context.Context, k *models.Key) error
	DeleteKey(ctx context.Context, email, keyID string) error

	CreateCert(ctx context.Context, c *models.Certificate) error
	GetCert(ctx context.Context, email, certID string) (*models.Certificate, error)
	ListCerts(ctx context.Context, email string) ([]models.Certificate, error)

	KeyNameExists(ctx context.Context, email, name string) (bool, error)
	CertNameExists(ctx context.Context, email, name string) (bool, error)
}

// Scans — история сканирований.
type Scans interface {
	Save(ctx context.Context, rec *models.ScanRecord) error
	ListByUser(ctx context.Context, email string, limit int) ([]models.ScanRecord, error)
}
