package models

import (
	"time"

	"gorm.io/datatypes"
)

type BadgeKategori string

const (
	KategoriHafalan  BadgeKategori = "hafalan"
	KategoriPresensi BadgeKategori = "presensi"
	KategoriAdab     BadgeKategori = "adab"
	KategoriKhusus   BadgeKategori = "khusus"
)

// Rule types understood by the badge evaluator.
const (
	RuleHafalanJuz  = "hafalan_juz"
	RuleMumtazCount = "mumtaz_count"
)

// BadgeRule is the eligibility rule stored in badges.syarat, e.g. {"type":"hafalan_juz","value":5}
type BadgeRule struct {
	Type  string `json:"type" validate:"required"`
	Value int64  `json:"value" validate:"min=0"`
}

// Badge: static catalog row, seeded out-of-band and read-only at runtime
type Badge struct {
	ID        string                        `gorm:"primaryKey;type:uuid" json:"id"`
	Code      string                        `gorm:"uniqueIndex;not null" json:"code"` // e.g. "JUZ_PERTAMA"
	Nama      string                        `gorm:"not null" json:"nama"`
	Deskripsi string                        `gorm:"type:text" json:"deskripsi,omitempty"`
	IconURL   string                        `gorm:"type:text" json:"icon_url,omitempty"`
	Kategori  BadgeKategori                 `gorm:"type:varchar(16);not null" json:"kategori"`
	Poin      int64                         `gorm:"not null;default:0" json:"poin"`
	Syarat    datatypes.JSONType[BadgeRule] `gorm:"type:jsonb" json:"syarat"`
	CreatedAt time.Time                     `gorm:"autoCreateTime" json:"created_at"`
}

// SantriBadge: awarded instance. The composite unique index is the guard
// against double awards.
type SantriBadge struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	SantriID string    `gorm:"type:uuid;not null;uniqueIndex:idx_santri_badge,priority:1" json:"santri_id"`
	BadgeID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_santri_badge,priority:2;index" json:"badge_id"`
	EarnedAt time.Time `gorm:"not null;index" json:"earned_at"`

	Badge *Badge `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

// DefaultBadgeCatalog is inserted by the seeder when the catalog is empty.
var DefaultBadgeCatalog = []Badge{
	{
		Code:      "JUZ_PERTAMA",
		Nama:      "Juz Pertama",
		Deskripsi: "Menyelesaikan hafalan juz pertama",
		Kategori:  KategoriHafalan,
		Poin:      100,
		Syarat:    datatypes.NewJSONType(BadgeRule{Type: RuleHafalanJuz, Value: 1}),
	},
	{
		Code:      "LIMA_JUZ",
		Nama:      "Lima Juz",
		Deskripsi: "Menyelesaikan hafalan 5 juz",
		Kategori:  KategoriHafalan,
		Poin:      300,
		Syarat:    datatypes.NewJSONType(BadgeRule{Type: RuleHafalanJuz, Value: 5}),
	},
	{
		Code:      "SEPULUH_JUZ",
		Nama:      "Sepuluh Juz",
		Deskripsi: "Menyelesaikan hafalan 10 juz",
		Kategori:  KategoriHafalan,
		Poin:      500,
		Syarat:    datatypes.NewJSONType(BadgeRule{Type: RuleHafalanJuz, Value: 10}),
	},
	{
		Code:      "KHATAM_30_JUZ",
		Nama:      "Khatam 30 Juz",
		Deskripsi: "Menyelesaikan hafalan 30 juz",
		Kategori:  KategoriHafalan,
		Poin:      1500,
		Syarat:    datatypes.NewJSONType(BadgeRule{Type: RuleHafalanJuz, Value: 30}),
	},
	{
		Code:      "MUMTAZ_PERTAMA",
		Nama:      "Mumtaz Pertama",
		Deskripsi: "Meraih predikat mumtaz pada tasmi'",
		Kategori:  KategoriKhusus,
		Poin:      150,
		Syarat:    datatypes.NewJSONType(BadgeRule{Type: RuleMumtazCount, Value: 1}),
	},
	{
		Code:      "LIMA_MUMTAZ",
		Nama:      "Lima Kali Mumtaz",
		Deskripsi: "Meraih predikat mumtaz pada 5 tasmi'",
		Kategori:  KategoriKhusus,
		Poin:      400,
		Syarat:    datatypes.NewJSONType(BadgeRule{Type: RuleMumtazCount, Value: 5}),
	},
}
