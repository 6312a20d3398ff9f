package models

import "time"

// OneTimeCode — одноразовый код для второго фактора.
// Инвариант: не более одной живой записи на email (upsert по ключу).
type OneTimeCode struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex;size:255;not null"`
	Code      string    `gorm:"size:6;not null"`
	Expiry    time.Time `gorm:"not null"`
	CreatedAt time.Time
}
