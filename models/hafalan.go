package models

import "time"

const (
	HafalanStatusProses  = "proses"
	HafalanStatusSelesai = "selesai"
)

// Tasmi' predicates, best first
const (
	PredikatMumtaz       = "mumtaz"
	PredikatJayyidJiddan = "jayyid_jiddan"
	PredikatJayyid       = "jayyid"
	PredikatMaqbul       = "maqbul"
)

// HafalanProgress tracks one juz of memorization for a santri. Written by the
// hafalan module; read here to count completed juz.
type HafalanProgress struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	SantriID    string     `gorm:"type:uuid;not null;index" json:"santri_id"`
	Juz         int        `gorm:"not null" json:"juz"`
	LembarSetor int        `gorm:"default:0" json:"lembar_setor"`
	Status      string     `gorm:"type:varchar(16);not null;default:'proses';index" json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Timestamps
}

func (HafalanProgress) TableName() string {
	return "hafalan_progress"
}

// TasmiEvaluation is a graded recitation session.
type TasmiEvaluation struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	SantriID     string    `gorm:"type:uuid;not null;index" json:"santri_id"`
	Juz          int       `json:"juz"`
	Nilai        float64   `json:"nilai"`
	Predikat     string    `gorm:"type:varchar(16);not null;index" json:"predikat"`
	Penguji      string    `json:"penguji,omitempty"`
	TanggalUjian time.Time `gorm:"type:date;not null" json:"tanggal_ujian"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TasmiEvaluation) TableName() string {
	return "tasmi_evaluations"
}
