package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	GenderLaki      = "L"
	GenderPerempuan = "P"
)

// Santri is the local mirror of a student record. TotalPoints and Level are
// caches recomputed from the points ledger on every point-changing event.
type Santri struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"` // master-data id
	NIS      string `gorm:"index" json:"nis,omitempty"`
	Nama     string `gorm:"not null;index" json:"nama"`
	Gender   string `gorm:"type:varchar(1);index" json:"gender"`
	Halaqoh  string `gorm:"index" json:"halaqoh,omitempty"`
	Musyrif  string `json:"musyrif,omitempty"`
	IsActive bool   `gorm:"not null;index" json:"is_active"`

	// Gamification caches
	TotalPoints   int64      `gorm:"default:0" json:"total_points"`
	Level         int        `gorm:"default:1" json:"level"`
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

func (Santri) TableName() string {
	return "santri"
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
