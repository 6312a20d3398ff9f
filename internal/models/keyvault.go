package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Key — криптографический ключ (RSA или AES) с историей версий.
// Материал храним как base64 PEM/raw; soft-delete через DeletedAt.
type Key struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	KeyID     string `gorm:"uniqueIndex;size:64;not null" json:"key_id"`
	UserEmail string `gorm:"index;size:255;not null" json:"-"`

	KeyName string `gorm:"size:255;not null" json:"key_name"`
	KeyType string `gorm:"size:16;not null" json:"key_type"` // RSA | AES
	KeySize int    `gorm:"not null" json:"key_size"`

	// Текущий материал (приватная часть наружу не отдаётся)
	PrivateMaterial string `gorm:"type:text" json:"-"`
	PublicMaterial  string `gorm:"type:text" json:"-"` // пусто для AES

	Version     int            `gorm:"not null;default:1" json:"version"`
	Versions    datatypes.JSON `json:"-"` // JSON-массив KeyVersion
	IsEnabled   bool           `gorm:"not null;default:true" json:"is_enabled"`
	LastRotated *time.Time     `json:"last_rotated"`
}

// KeyVersion — элемент истории версий ключа.
type KeyVersion struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// Certificate — самоподписанный X.509 сертификат пользователя.
type Certificate struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CertID    string `gorm:"uniqueIndex;size:64;not null" json:"cert_id"`
	UserEmail string `gorm:"index;size:255;not null" json:"-"`

	CertName   string `gorm:"size:255;not null" json:"cert_name"`
	CommonName string `gorm:"size:255;not null" json:"common_name"`

	CertPEM      string `gorm:"type:text" json:"-"` // base64(PEM)
	KeyPEM       string `gorm:"type:text" json:"-"` // base64(PEM), наружу не отдаётся
	SerialNumber string `gorm:"size:64" json:"serial_number"`

	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	ValidityDays int       `json:"validity_days"`
}
