package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User — учётная запись платформы. Пользователи удаляются жёстко
// (в отличие от ключей/сертификатов), поэтому DeletedAt здесь нет.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	FullName     string `gorm:"size:255" json:"full_name"`

	Role              string         `gorm:"size:32;not null;default:normal" json:"role"`
	CustomPermissions datatypes.JSON `json:"custom_permissions"` // JSON-массив идентификаторов
	IsActive          bool           `gorm:"not null;default:true" json:"is_active"`
	IsVerified        bool           `gorm:"not null;default:false" json:"is_verified"`
	MFAEnabled        bool           `gorm:"not null;default:true" json:"mfa_enabled"`

	LastLogin *time.Time `json:"last_login"`
	CreatedBy string     `gorm:"size:255" json:"created_by,omitempty"`
}

// CustomPerms распаковывает JSON-колонку в срез строк (nil — пустой срез).
func (u *User) CustomPerms() []string {
	if len(u.CustomPermissions) == 0 {
		return nil
	}
	var perms []string
	if err := json.Unmarshal(u.CustomPermissions, &perms); err != nil {
		return nil
	}
	return perms
}

// SetCustomPerms сериализует срез обратно в JSON-колонку.
func (u *User) SetCustomPerms(perms []string) {
	if perms == nil {
		perms = []string{}
	}
	b, _ := json.Marshal(perms)
	u.CustomPermissions = datatypes.JSON(b)
}
