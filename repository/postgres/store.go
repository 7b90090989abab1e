// Package postgres implements repository.Store on gorm + postgres.
package postgres

import (
	"context"
	"errors"
	"time"

	"santri-progress-system/models"
	"santri-progress-system/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

var _ repository.Store = (*Store)(nil)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// --- santri ---

func (s *Store) FindSantri(ctx context.Context, id string) (*models.Santri, error) {
	var santri models.Santri
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&santri).Error; err != nil {
		return nil, translate(err)
	}
	return &santri, nil
}

func (s *Store) LockSantri(ctx context.Context, id string) (*models.Santri, error) {
	var santri models.Santri
	err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&santri).Error
	if err != nil {
		return nil, translate(err)
	}
	return &santri, nil
}

func (s *Store) ListSantri(ctx context.Context, filter repository.SantriFilter) ([]models.Santri, error) {
	q := s.DB.WithContext(ctx).Model(&models.Santri{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Gender != "" {
		q = q.Where("gender = ?", filter.Gender)
	}
	if filter.Halaqoh != "" {
		q = q.Where("halaqoh = ?", filter.Halaqoh)
	}
	var out []models.Santri
	if err := q.Order("nama ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// UpsertSantri writes roster fields only; the gamification caches are owned by
// this service and never overwritten by a sync.
func (s *Store) UpsertSantri(ctx context.Context, santri *models.Santri) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"nis", "nama", "gender", "halaqoh", "musyrif", "is_active", "updated_at",
		}),
	}).Create(santri).Error
	return translate(err)
}

// UpdateSantriPoints uses UpdateColumns so updated_at, the roster sync
// cursor, only moves when master data changes.
func (s *Store) UpdateSantriPoints(ctx context.Context, id string, total int64, level int) error {
	res := s.DB.WithContext(ctx).Model(&models.Santri{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"total_points":     total,
			"level":            level,
			"last_level_up_at": gorm.Expr("CASE WHEN level < ? THEN NOW() ELSE last_level_up_at END", level),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) LatestSantriUpdate(ctx context.Context) (time.Time, error) {
	var last *time.Time
	err := s.DB.WithContext(ctx).Raw("SELECT MAX(updated_at) FROM santri WHERE deleted_at IS NULL").Scan(&last).Error
	if err != nil || last == nil {
		return time.Time{}, translate(err)
	}
	return *last, nil
}

// --- badges ---

func (s *Store) ListBadges(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	if err := s.DB.WithContext(ctx).Order("kategori ASC, poin ASC").Find(&badges).Error; err != nil {
		return nil, translate(err)
	}
	return badges, nil
}

func (s *Store) FindBadgeByCode(ctx context.Context, code string) (*models.Badge, error) {
	var badge models.Badge
	if err := s.DB.WithContext(ctx).Where("code = ?", code).First(&badge).Error; err != nil {
		return nil, translate(err)
	}
	return &badge, nil
}

func (s *Store) CreateBadge(ctx context.Context, b *models.Badge) error {
	return translate(s.DB.WithContext(ctx).Create(b).Error)
}

func (s *Store) EarnedBadges(ctx context.Context, santriID string) ([]models.SantriBadge, error) {
	var out []models.SantriBadge
	err := s.DB.WithContext(ctx).
		Preload("Badge").
		Where("santri_id = ?", santriID).
		Order("earned_at ASC").
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) BadgesEarnedSince(ctx context.Context, santriID string, since time.Time) ([]models.SantriBadge, error) {
	var out []models.SantriBadge
	err := s.DB.WithContext(ctx).
		Preload("Badge").
		Where("santri_id = ? AND earned_at > ?", santriID, since).
		Order("earned_at ASC").
		Find(&out).Error
	return out, translate(err)
}

// InsertSantriBadge relies on idx_santri_badge: a concurrent insert of the same
// pair blocks until the first transaction finishes, then affects zero rows.
func (s *Store) InsertSantriBadge(ctx context.Context, sb *models.SantriBadge) error {
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "santri_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(sb)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

// --- ledger ---

func (s *Store) AppendLedger(ctx context.Context, e *models.PointsLedgerEntry) error {
	return translate(s.DB.WithContext(ctx).Create(e).Error)
}

func (s *Store) SumLedger(ctx context.Context, santriID string) (int64, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&models.PointsLedgerEntry{}).
		Where("santri_id = ?", santriID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, translate(err)
}

func (s *Store) ListLedger(ctx context.Context, santriID string, offset, limit int) ([]models.PointsLedgerEntry, int64, error) {
	var total int64
	base := s.DB.WithContext(ctx).Model(&models.PointsLedgerEntry{}).Where("santri_id = ?", santriID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var entries []models.PointsLedgerEntry
	err := s.DB.WithContext(ctx).
		Where("santri_id = ?", santriID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, total, translate(err)
}

func (s *Store) LedgerTotals(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		SantriID string
		Total    int64
	}
	err := s.DB.WithContext(ctx).Model(&models.PointsLedgerEntry{}).
		Select("santri_id, COALESCE(SUM(amount), 0) AS total").
		Group("santri_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.SantriID] = r.Total
	}
	return out, nil
}

// --- counters ---

func (s *Store) CountCompletedHafalan(ctx context.Context, santriID string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.HafalanProgress{}).
		Where("santri_id = ? AND status = ?", santriID, models.HafalanStatusSelesai).
		Count(&count).Error
	return count, translate(err)
}

func (s *Store) CountTasmiByPredikat(ctx context.Context, santriID, predikat string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.TasmiEvaluation{}).
		Where("santri_id = ? AND predikat = ?", santriID, predikat).
		Count(&count).Error
	return count, translate(err)
}

// --- attendance ---

func (s *Store) ListAttendance(ctx context.Context, filter repository.AttendanceFilter) ([]models.AttendanceRecord, error) {
	q := s.DB.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Where("attendance_records.date >= ? AND attendance_records.date < ?", filter.From, filter.To)
	if filter.Gender != "" {
		q = q.Joins("JOIN santri ON santri.id = attendance_records.santri_id").
			Where("santri.gender = ?", filter.Gender)
	}
	var out []models.AttendanceRecord
	if err := q.Order("attendance_records.date ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) UpsertAttendance(ctx context.Context, records []models.AttendanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "santri_id"}, {Name: "activity_name"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "keterangan", "updated_at"}),
	}).CreateInBatches(&records, 200)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) LatestAttendanceUpdate(ctx context.Context) (time.Time, error) {
	var last *time.Time
	err := s.DB.WithContext(ctx).Raw("SELECT MAX(updated_at) FROM attendance_records").Scan(&last).Error
	if err != nil || last == nil {
		return time.Time{}, translate(err)
	}
	return *last, nil
}
