package models

import "time"

// PointsLedgerEntry is an append-only log row. A santri's total is the sum of
// all entries; rows are never updated.
type PointsLedgerEntry struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	SantriID  string    `gorm:"type:uuid;not null;index:idx_ledger_santri_created,priority:1" json:"santri_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	BadgeID   *string   `gorm:"type:uuid;index" json:"badge_id,omitempty"`
	CreatedBy string    `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"not null;index:idx_ledger_santri_created,priority:2" json:"created_at"`
}

func (PointsLedgerEntry) TableName() string {
	return "points_ledger"
}
