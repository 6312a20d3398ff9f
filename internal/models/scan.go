package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScanRecord — сохранённый результат сканирования (история пользователя).
type ScanRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"scanned_at"`

	UserEmail string `gorm:"index;size:255;not null" json:"user_email"`
	ScanType  string `gorm:"size:16;not null" json:"scan_type"` // text | file | github
	Filename  string `gorm:"size:512" json:"filename,omitempty"`

	TotalFound int            `json:"total_found"`
	Critical   int            `json:"critical"`
	High       int            `json:"high"`
	Medium     int            `json:"medium"`
	Low        int            `json:"low"`
	Findings   datatypes.JSON `json:"findings"` // JSON-массив scanner.Finding (значения урезаны)
}
