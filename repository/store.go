// Package repository defines the storage boundary used by the services. Every
// service receives a Store explicitly; nothing reads a global connection.
package repository

import (
	"context"
	"errors"
	"time"

	"santri-progress-system/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// SantriFilter narrows ListSantri. Zero values mean "no filter".
type SantriFilter struct {
	ActiveOnly bool
	Gender     string
	Halaqoh    string
}

// AttendanceFilter selects presensi rows in [From, To).
type AttendanceFilter struct {
	From   time.Time
	To     time.Time
	Gender string
}

type Store interface {
	// Transaction runs fn against a transactional Store. A non-nil error from fn
	// rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	FindSantri(ctx context.Context, id string) (*models.Santri, error)
	// LockSantri reads the santri row and holds it until the enclosing
	// transaction ends. Every point-changing write takes this lock first.
	LockSantri(ctx context.Context, id string) (*models.Santri, error)
	ListSantri(ctx context.Context, filter SantriFilter) ([]models.Santri, error)
	UpsertSantri(ctx context.Context, s *models.Santri) error
	UpdateSantriPoints(ctx context.Context, id string, total int64, level int) error
	LatestSantriUpdate(ctx context.Context) (time.Time, error)

	ListBadges(ctx context.Context) ([]models.Badge, error)
	FindBadgeByCode(ctx context.Context, code string) (*models.Badge, error)
	CreateBadge(ctx context.Context, b *models.Badge) error
	EarnedBadges(ctx context.Context, santriID string) ([]models.SantriBadge, error)
	BadgesEarnedSince(ctx context.Context, santriID string, since time.Time) ([]models.SantriBadge, error)
	// InsertSantriBadge returns ErrDuplicate when the (santri, badge) pair exists.
	InsertSantriBadge(ctx context.Context, sb *models.SantriBadge) error

	AppendLedger(ctx context.Context, e *models.PointsLedgerEntry) error
	SumLedger(ctx context.Context, santriID string) (int64, error)
	ListLedger(ctx context.Context, santriID string, offset, limit int) ([]models.PointsLedgerEntry, int64, error)
	LedgerTotals(ctx context.Context) (map[string]int64, error)

	CountCompletedHafalan(ctx context.Context, santriID string) (int64, error)
	CountTasmiByPredikat(ctx context.Context, santriID, predikat string) (int64, error)

	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]models.AttendanceRecord, error)
	UpsertAttendance(ctx context.Context, records []models.AttendanceRecord) (int, error)
	LatestAttendanceUpdate(ctx context.Context) (time.Time, error)
}
