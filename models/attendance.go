package models

import "time"

type AttendanceStatus string

const (
	StatusHadir AttendanceStatus = "hadir"
	StatusIzin  AttendanceStatus = "izin"
	StatusSakit AttendanceStatus = "sakit"
	StatusAlpa  AttendanceStatus = "alpa"
)

// AttendanceRecord mirrors one presensi row from the attendance service.
// One row per santri per activity session (date).
type AttendanceRecord struct {
	ID           string           `gorm:"primaryKey;type:uuid" json:"id"`
	SantriID     string           `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_session,priority:1" json:"santri_id"`
	ActivityName string           `gorm:"not null;uniqueIndex:idx_attendance_session,priority:2" json:"activity_name"`
	Date         time.Time        `gorm:"type:date;not null;uniqueIndex:idx_attendance_session,priority:3;index" json:"date"`
	Status       AttendanceStatus `gorm:"type:varchar(8);not null" json:"status" validate:"required,oneof=hadir izin sakit alpa"`
	Keterangan   string           `json:"keterangan,omitempty"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime;index" json:"updated_at"`
}
