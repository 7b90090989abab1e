// Package memory is an in-process repository.Store used by tests and local
// runs without postgres. All tables share one mutex; a transaction holds it
// for its whole duration and restores a snapshot on error.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"santri-progress-system/models"
	"santri-progress-system/repository"
)

type tables struct {
	santri     map[string]models.Santri
	badges     []models.Badge
	awards     []models.SantriBadge
	ledger     []models.PointsLedgerEntry
	hafalan    []models.HafalanProgress
	tasmi      []models.TasmiEvaluation
	attendance []models.AttendanceRecord
}

func (t *tables) clone() *tables {
	return &tables{
		santri:     maps.Clone(t.santri),
		badges:     slices.Clone(t.badges),
		awards:     slices.Clone(t.awards),
		ledger:     slices.Clone(t.ledger),
		hafalan:    slices.Clone(t.hafalan),
		tasmi:      slices.Clone(t.tasmi),
		attendance: slices.Clone(t.attendance),
	}
}

type db struct {
	mu sync.Mutex
	t  *tables
}

type Store struct {
	db   *db
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		db:  &db{t: &tables{santri: make(map[string]models.Santri)}},
		now: time.Now,
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	unlock := s.lock()
	defer unlock()

	snapshot := s.db.t.clone()
	if err := fn(&Store{db: s.db, inTx: true, now: s.now}); err != nil {
		s.db.t = snapshot
		return err
	}
	return nil
}

// --- seeding helpers (memory only) ---

func (s *Store) AddHafalan(rows ...models.HafalanProgress) {
	defer s.lock()()
	s.db.t.hafalan = append(s.db.t.hafalan, rows...)
}

func (s *Store) AddTasmi(rows ...models.TasmiEvaluation) {
	defer s.lock()()
	s.db.t.tasmi = append(s.db.t.tasmi, rows...)
}

// SetSantriCache overwrites the cached points without a ledger entry, to
// simulate drift.
func (s *Store) SetSantriCache(id string, total int64, level int) {
	defer s.lock()()
	if row, ok := s.db.t.santri[id]; ok {
		row.TotalPoints = total
		row.Level = level
		s.db.t.santri[id] = row
	}
}

// --- santri ---

func (s *Store) FindSantri(ctx context.Context, id string) (*models.Santri, error) {
	defer s.lock()()
	row, ok := s.db.t.santri[id]
	if !ok || row.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

// LockSantri is FindSantri here: transactions already hold the store mutex.
func (s *Store) LockSantri(ctx context.Context, id string) (*models.Santri, error) {
	return s.FindSantri(ctx, id)
}

func (s *Store) ListSantri(ctx context.Context, filter repository.SantriFilter) ([]models.Santri, error) {
	defer s.lock()()
	out := make([]models.Santri, 0, len(s.db.t.santri))
	for _, row := range s.db.t.santri {
		if row.DeletedAt.Valid {
			continue
		}
		if filter.ActiveOnly && !row.IsActive {
			continue
		}
		if filter.Gender != "" && row.Gender != filter.Gender {
			continue
		}
		if filter.Halaqoh != "" && row.Halaqoh != filter.Halaqoh {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nama != out[j].Nama {
			return out[i].Nama < out[j].Nama
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpsertSantri(ctx context.Context, santri *models.Santri) error {
	defer s.lock()()
	now := s.now()
	row, ok := s.db.t.santri[santri.ID]
	if !ok {
		row = *santri
		if row.Level == 0 {
			row.Level = 1
		}
		row.CreatedAt = now
		row.UpdatedAt = now
		if !santri.UpdatedAt.IsZero() {
			row.UpdatedAt = santri.UpdatedAt
		}
		s.db.t.santri[santri.ID] = row
		return nil
	}
	row.NIS = santri.NIS
	row.Nama = santri.Nama
	row.Gender = santri.Gender
	row.Halaqoh = santri.Halaqoh
	row.Musyrif = santri.Musyrif
	row.IsActive = santri.IsActive
	row.UpdatedAt = now
	if !santri.UpdatedAt.IsZero() {
		row.UpdatedAt = santri.UpdatedAt
	}
	s.db.t.santri[santri.ID] = row
	return nil
}

func (s *Store) UpdateSantriPoints(ctx context.Context, id string, total int64, level int) error {
	defer s.lock()()
	row, ok := s.db.t.santri[id]
	if !ok {
		return repository.ErrNotFound
	}
	if level > row.Level {
		now := s.now()
		row.LastLevelUpAt = &now
	}
	row.TotalPoints = total
	row.Level = level
	s.db.t.santri[id] = row
	return nil
}

func (s *Store) LatestSantriUpdate(ctx context.Context) (time.Time, error) {
	defer s.lock()()
	var last time.Time
	for _, row := range s.db.t.santri {
		if row.UpdatedAt.After(last) {
			last = row.UpdatedAt
		}
	}
	return last, nil
}

// --- badges ---

func (s *Store) ListBadges(ctx context.Context) ([]models.Badge, error) {
	defer s.lock()()
	return slices.Clone(s.db.t.badges), nil
}

func (s *Store) FindBadgeByCode(ctx context.Context, code string) (*models.Badge, error) {
	defer s.lock()()
	for _, b := range s.db.t.badges {
		if b.Code == code {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateBadge(ctx context.Context, b *models.Badge) error {
	defer s.lock()()
	for _, existing := range s.db.t.badges {
		if existing.Code == b.Code || existing.ID == b.ID {
			return repository.ErrDuplicate
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	s.db.t.badges = append(s.db.t.badges, *b)
	return nil
}

func (s *Store) badgeByID(id string) *models.Badge {
	for _, b := range s.db.t.badges {
		if b.ID == id {
			return &b
		}
	}
	return nil
}

func (s *Store) EarnedBadges(ctx context.Context, santriID string) ([]models.SantriBadge, error) {
	return s.BadgesEarnedSince(ctx, santriID, time.Time{})
}

func (s *Store) BadgesEarnedSince(ctx context.Context, santriID string, since time.Time) ([]models.SantriBadge, error) {
	defer s.lock()()
	var out []models.SantriBadge
	for _, sb := range s.db.t.awards {
		if sb.SantriID != santriID || !sb.EarnedAt.After(since) {
			continue
		}
		sb.Badge = s.badgeByID(sb.BadgeID)
		out = append(out, sb)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EarnedAt.Before(out[j].EarnedAt) })
	return out, nil
}

func (s *Store) InsertSantriBadge(ctx context.Context, sb *models.SantriBadge) error {
	defer s.lock()()
	for _, existing := range s.db.t.awards {
		if existing.SantriID == sb.SantriID && existing.BadgeID == sb.BadgeID {
			return repository.ErrDuplicate
		}
	}
	row := *sb
	row.Badge = nil
	s.db.t.awards = append(s.db.t.awards, row)
	return nil
}

// --- ledger ---

func (s *Store) AppendLedger(ctx context.Context, e *models.PointsLedgerEntry) error {
	defer s.lock()()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.db.t.ledger = append(s.db.t.ledger, *e)
	return nil
}

func (s *Store) SumLedger(ctx context.Context, santriID string) (int64, error) {
	defer s.lock()()
	var total int64
	for _, e := range s.db.t.ledger {
		if e.SantriID == santriID {
			total += e.Amount
		}
	}
	return total, nil
}

func (s *Store) ListLedger(ctx context.Context, santriID string, offset, limit int) ([]models.PointsLedgerEntry, int64, error) {
	defer s.lock()()
	var rows []models.PointsLedgerEntry
	for _, e := range s.db.t.ledger {
		if e.SantriID == santriID {
			rows = append(rows, e)
		}
	}
	// newest first; append order breaks ties
	slices.Reverse(rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	total := int64(len(rows))
	if offset >= len(rows) {
		return []models.PointsLedgerEntry{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], total, nil
}

func (s *Store) LedgerTotals(ctx context.Context) (map[string]int64, error) {
	defer s.lock()()
	out := make(map[string]int64)
	for _, e := range s.db.t.ledger {
		out[e.SantriID] += e.Amount
	}
	return out, nil
}

// --- counters ---

func (s *Store) CountCompletedHafalan(ctx context.Context, santriID string) (int64, error) {
	defer s.lock()()
	var n int64
	for _, h := range s.db.t.hafalan {
		if h.SantriID == santriID && h.Status == models.HafalanStatusSelesai {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountTasmiByPredikat(ctx context.Context, santriID, predikat string) (int64, error) {
	defer s.lock()()
	var n int64
	for _, t := range s.db.t.tasmi {
		if t.SantriID == santriID && t.Predikat == predikat {
			n++
		}
	}
	return n, nil
}

// --- attendance ---

func (s *Store) ListAttendance(ctx context.Context, filter repository.AttendanceFilter) ([]models.AttendanceRecord, error) {
	defer s.lock()()
	var out []models.AttendanceRecord
	for _, r := range s.db.t.attendance {
		if r.Date.Before(filter.From) || !r.Date.Before(filter.To) {
			continue
		}
		if filter.Gender != "" && s.db.t.santri[r.SantriID].Gender != filter.Gender {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertAttendance(ctx context.Context, records []models.AttendanceRecord) (int, error) {
	defer s.lock()()
	now := s.now()
	for _, r := range records {
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		replaced := false
		for i, existing := range s.db.t.attendance {
			if existing.SantriID == r.SantriID &&
				existing.ActivityName == r.ActivityName &&
				existing.Date.Equal(r.Date) {
				r.ID = existing.ID
				s.db.t.attendance[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			s.db.t.attendance = append(s.db.t.attendance, r)
		}
	}
	return len(records), nil
}

func (s *Store) LatestAttendanceUpdate(ctx context.Context) (time.Time, error) {
	defer s.lock()()
	var last time.Time
	for _, r := range s.db.t.attendance {
		if r.UpdatedAt.After(last) {
			last = r.UpdatedAt
		}
	}
	return last, nil
}
