package memory

import (
	"errors"
	"testing"
	"time"

	"santri-progress-system/models"
	"santri-progress-system/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRollsBackOnError(t *testing.T) {
	s := New()
	ctx := t.Context()
	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s1", Nama: "Ahmad", IsActive: true}))

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.AppendLedger(ctx, &models.PointsLedgerEntry{ID: "e1", SantriID: "s1", Amount: 100, Reason: "x"}))
		require.NoError(t, tx.UpdateSantriPoints(ctx, "s1", 100, 1))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sum, err := s.SumLedger(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, sum)
	got, err := s.FindSantri(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, got.TotalPoints)
}

func TestTransactionCommits(t *testing.T) {
	s := New()
	ctx := t.Context()
	err := s.Transaction(ctx, func(tx repository.Store) error {
		return tx.AppendLedger(ctx, &models.PointsLedgerEntry{ID: "e1", SantriID: "s1", Amount: 40, Reason: "x"})
	})
	require.NoError(t, err)

	sum, err := s.SumLedger(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), sum)
}

func TestInsertSantriBadgeDuplicate(t *testing.T) {
	s := New()
	ctx := t.Context()
	require.NoError(t, s.InsertSantriBadge(ctx, &models.SantriBadge{ID: "a", SantriID: "s1", BadgeID: "b1", EarnedAt: time.Now()}))
	err := s.InsertSantriBadge(ctx, &models.SantriBadge{ID: "b", SantriID: "s1", BadgeID: "b1", EarnedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	require.NoError(t, s.InsertSantriBadge(ctx, &models.SantriBadge{ID: "c", SantriID: "s2", BadgeID: "b1", EarnedAt: time.Now()}))
}

func TestBadgesEarnedSince(t *testing.T) {
	s := New()
	ctx := t.Context()
	require.NoError(t, s.CreateBadge(ctx, &models.Badge{ID: "b1", Code: "A", Nama: "A"}))
	require.NoError(t, s.CreateBadge(ctx, &models.Badge{ID: "b2", Code: "B", Nama: "B"}))
	assert.ErrorIs(t, s.CreateBadge(ctx, &models.Badge{ID: "b3", Code: "A"}), repository.ErrDuplicate)

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertSantriBadge(ctx, &models.SantriBadge{ID: "x", SantriID: "s1", BadgeID: "b1", EarnedAt: t0}))
	require.NoError(t, s.InsertSantriBadge(ctx, &models.SantriBadge{ID: "y", SantriID: "s1", BadgeID: "b2", EarnedAt: t0.Add(time.Hour)}))

	fresh, err := s.BadgesEarnedSince(ctx, "s1", t0)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "b2", fresh[0].BadgeID)
	require.NotNil(t, fresh[0].Badge)
	assert.Equal(t, "B", fresh[0].Badge.Code)

	all, err := s.EarnedBadges(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpsertSantriKeepsPointCaches(t *testing.T) {
	s := New()
	ctx := t.Context()
	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s1", Nama: "Ahmad", IsActive: true}))
	require.NoError(t, s.UpdateSantriPoints(ctx, "s1", 700, 2))

	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s1", Nama: "Ahmad Fauzi", Halaqoh: "A", IsActive: true}))
	got, err := s.FindSantri(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ahmad Fauzi", got.Nama)
	assert.Equal(t, int64(700), got.TotalPoints)
	assert.Equal(t, 2, got.Level)
	assert.NotNil(t, got.LastLevelUpAt)

	assert.ErrorIs(t, s.UpdateSantriPoints(ctx, "nobody", 1, 1), repository.ErrNotFound)
	_, err = s.FindSantri(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAttendanceUpsertAndFilter(t *testing.T) {
	s := New()
	ctx := t.Context()
	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s1", Nama: "Ahmad", Gender: models.GenderLaki}))
	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s2", Nama: "Aisyah", Gender: models.GenderPerempuan}))

	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	n, err := s.UpsertAttendance(ctx, []models.AttendanceRecord{
		{ID: "r1", SantriID: "s1", ActivityName: "Halaqoh", Date: d, Status: models.StatusAlpa},
		{ID: "r2", SantriID: "s2", ActivityName: "Halaqoh", Date: d, Status: models.StatusHadir},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// same session key replaces the status
	_, err = s.UpsertAttendance(ctx, []models.AttendanceRecord{
		{ID: "r3", SantriID: "s1", ActivityName: "Halaqoh", Date: d, Status: models.StatusHadir},
	})
	require.NoError(t, err)

	rows, err := s.ListAttendance(ctx, repository.AttendanceFilter{From: d, To: d.AddDate(0, 1, 0), Gender: models.GenderLaki})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r1", rows[0].ID)
	assert.Equal(t, models.StatusHadir, rows[0].Status)

	rows, err = s.ListAttendance(ctx, repository.AttendanceFilter{From: d.AddDate(0, 1, 0), To: d.AddDate(0, 2, 0)})
	require.NoError(t, err)
	assert.Empty(t, rows)

	last, err := s.LatestAttendanceUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestListLedgerNewestFirst(t *testing.T) {
	s := New()
	ctx := t.Context()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendLedger(ctx, &models.PointsLedgerEntry{
			ID: string(rune('a' + i)), SantriID: "s1", Amount: int64(i + 1), Reason: "x", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	rows, total, err := s.ListLedger(ctx, "s1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].Amount)
	assert.Equal(t, int64(2), rows[1].Amount)

	totals, err := s.LedgerTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), totals["s1"])
}

func TestUpsertSantriDeactivates(t *testing.T) {
	s := New()
	ctx := t.Context()
	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s1", Nama: "Ahmad", IsActive: true}))
	require.NoError(t, s.UpdateSantriPoints(ctx, "s1", 700, 2))
	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s1", Nama: "Ahmad", IsActive: false}))

	got, err := s.FindSantri(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, int64(700), got.TotalPoints)
	assert.Equal(t, 2, got.Level)
}

func TestUpdateSantriPointsKeepsUpdatedAt(t *testing.T) {
	s := New()
	ctx := t.Context()
	synced := time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSantri(ctx, &models.Santri{ID: "s1", Nama: "Ahmad", IsActive: true, Timestamps: models.Timestamps{UpdatedAt: synced}}))
	require.NoError(t, s.UpdateSantriPoints(ctx, "s1", 1600, 3))

	last, err := s.LatestSantriUpdate(ctx)
	require.NoError(t, err)
	assert.Equal(t, synced, last)
}
