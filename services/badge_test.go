package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"santri-progress-system/models"
	"santri-progress-system/repository"
	"santri-progress-system/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// flakyStore fails selected counter reads.
type flakyStore struct {
	*memory.Store
	mock.Mock
}

func (f *flakyStore) CountTasmiByPredikat(ctx context.Context, santriID, predikat string) (int64, error) {
	args := f.Called(santriID, predikat)
	return int64(args.Int(0)), args.Error(1)
}

func (f *flakyStore) CountCompletedHafalan(ctx context.Context, santriID string) (int64, error) {
	args := f.Called(santriID)
	return int64(args.Int(0)), args.Error(1)
}

var _ repository.Store = (*flakyStore)(nil)

func TestAwardBadgeCreditsPointsAndLevel(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Ahmad", "L")
	customBadge(t, store, "FIVE_HUNDRED", 500, models.BadgeRule{Type: models.RuleHafalanJuz, Value: 99})

	result, err := svc.AwardBadge(t.Context(), santri.ID, "FIVE_HUNDRED")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, MessageAwarded, result.Message)
	assert.Equal(t, int64(500), result.TotalPoints)
	require.NotNil(t, result.Level)
	assert.Equal(t, 1, result.Level.Level)

	got, err := store.FindSantri(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TotalPoints)
	assert.Equal(t, 1, got.Level)

	entries, total, err := store.ListLedger(t.Context(), santri.ID, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, int64(500), entries[0].Amount)
	assert.Equal(t, "Badge: FIVE_HUNDRED", entries[0].Reason)
	require.NotNil(t, entries[0].BadgeID)
}

func TestAwardBadgeLevelUpStampsTime(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Ahmad", "L")

	result, err := svc.AwardBadge(t.Context(), santri.ID, "KHATAM_30_JUZ")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.TotalPoints)
	assert.Equal(t, 2, result.Level.Level)

	got, err := store.FindSantri(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLevelUpAt)
}

func TestAwardBadgeAlreadyOwned(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Ahmad", "L")

	_, err := svc.AwardBadge(t.Context(), santri.ID, "JUZ_PERTAMA")
	require.NoError(t, err)

	again, err := svc.AwardBadge(t.Context(), santri.ID, "JUZ_PERTAMA")
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, MessageAlreadyOwned, again.Message)

	sum, err := store.SumLedger(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum)
}

func TestAwardBadgeNotFound(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Ahmad", "L")

	result, err := svc.AwardBadge(t.Context(), santri.ID, "NO_SUCH_BADGE")
	assert.ErrorIs(t, err, ErrBadgeNotFound)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, MessageBadgeNotFound, result.Message)

	result, err = svc.AwardBadge(t.Context(), "missing-santri", "JUZ_PERTAMA")
	assert.ErrorIs(t, err, ErrSantriNotFound)
	assert.Equal(t, MessageSantriNotFound, result.Message)

	earned, err := store.EarnedBadges(t.Context(), "missing-santri")
	require.NoError(t, err)
	assert.Empty(t, earned)
}

func TestAwardBadgeConcurrentRace(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Ahmad", "L")

	const workers = 16
	var wg sync.WaitGroup
	results := make([]*AwardResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.AwardBadge(context.Background(), santri.ID, "LIMA_JUZ")
		}(i)
	}
	wg.Wait()

	successes := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Success {
			successes++
		} else {
			assert.Equal(t, MessageAlreadyOwned, results[i].Message)
		}
	}
	assert.Equal(t, 1, successes)

	earned, err := store.EarnedBadges(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Len(t, earned, 1)

	_, total, err := store.ListLedger(t.Context(), santri.ID, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	got, err := store.FindSantri(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.TotalPoints)
}

func TestCheckAndAwardBadges(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Fatimah", "P")
	completeJuz(store, santri.ID, 5)
	addTasmi(store, santri.ID, models.PredikatMumtaz, 1)
	addTasmi(store, santri.ID, models.PredikatJayyid, 3)

	awarded, err := svc.CheckAndAwardBadges(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Juz Pertama", "Lima Juz", "Mumtaz Pertama"}, awarded)

	got, err := store.FindSantri(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100+300+150), got.TotalPoints)
	assert.Equal(t, 2, got.Level)

	again, err := svc.CheckAndAwardBadges(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.NotNil(t, again)
}

func TestCheckAndAwardBadgesNothingEligible(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Fatimah", "P")

	awarded, err := svc.CheckAndAwardBadges(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestCheckAndAwardBadgesSkipsUnknownRule(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	santri := createSantri(t, store, "Fatimah", "P")
	customBadge(t, store, "RAJIN_SHOLAT", 50, models.BadgeRule{Type: "presensi_streak", Value: 0})

	awarded, err := svc.CheckAndAwardBadges(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestCheckAndAwardBadgesUnknownSantri(t *testing.T) {
	svc := NewBadgeService(setup(t))
	_, err := svc.CheckAndAwardBadges(t.Context(), "nobody")
	assert.ErrorIs(t, err, ErrSantriNotFound)
}

func TestCheckAndAwardBadgesReadFailureAborts(t *testing.T) {
	mem := setup(t)
	santri := createSantri(t, mem, "Fatimah", "P")
	addTasmi(mem, santri.ID, models.PredikatMumtaz, 5)

	store := &flakyStore{Store: mem}
	boom := errors.New("connection reset")
	store.On("CountCompletedHafalan", santri.ID).Return(1, nil)
	store.On("CountTasmiByPredikat", santri.ID, models.PredikatMumtaz).Return(0, boom)

	svc := NewBadgeService(store)
	awarded, err := svc.CheckAndAwardBadges(t.Context(), santri.ID)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Juz Pertama"}, awarded)

	earned, err := mem.EarnedBadges(t.Context(), santri.ID)
	require.NoError(t, err)
	assert.Len(t, earned, 1)

	// each counter is read once per run
	store.AssertNumberOfCalls(t, "CountCompletedHafalan", 1)
	store.AssertNumberOfCalls(t, "CountTasmiByPredikat", 1)
}

func TestSweepAll(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	a := createSantri(t, store, "Ahmad", "L")
	b := createSantri(t, store, "Fatimah", "P")
	inactive := createSantri(t, store, "Umar", "L")
	inactive.IsActive = false
	require.NoError(t, store.UpsertSantri(t.Context(), &inactive))

	completeJuz(store, a.ID, 1)
	addTasmi(store, b.ID, models.PredikatMumtaz, 1)
	completeJuz(store, inactive.ID, 30)

	report, err := svc.SweepAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 2, report.Awarded)
	assert.Equal(t, 0, report.Failed)

	earned, err := store.EarnedBadges(t.Context(), inactive.ID)
	require.NoError(t, err)
	assert.Empty(t, earned)
}

func TestCreateBadge(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)

	badge, err := svc.CreateBadge(t.Context(), CreateBadgeInput{
		Nama:      "Dua Puluh Juz",
		Kategori:  "hafalan",
		Poin:      1000,
		RuleType:  models.RuleHafalanJuz,
		RuleValue: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, "DUA_PULUH_JUZ", badge.Code)
	assert.Equal(t, models.BadgeRule{Type: models.RuleHafalanJuz, Value: 20}, badge.Syarat.Data())

	_, err = svc.CreateBadge(t.Context(), CreateBadgeInput{
		Code:      "dua puluh juz",
		Nama:      "Another",
		Kategori:  "hafalan",
		RuleType:  models.RuleHafalanJuz,
		RuleValue: 20,
	})
	assert.ErrorIs(t, err, ErrBadgeCodeTaken)
}

func TestBadgeCode(t *testing.T) {
	assert.Equal(t, "LIMA_JUZ", BadgeCode("Lima Juz!"))
	assert.Equal(t, "KHATAM_30_JUZ", BadgeCode("  khatam 30 juz "))
}

func TestEarnedBadgesUnknownSantri(t *testing.T) {
	svc := NewBadgeService(setup(t))
	_, err := svc.EarnedBadges(t.Context(), "nobody")
	assert.ErrorIs(t, err, ErrSantriNotFound)
}

func TestBadgeCountersMeets(t *testing.T) {
	c := BadgeCounters{CompletedJuz: 5, MumtazCount: 2}
	assert.True(t, c.Meets(models.BadgeRule{Type: models.RuleHafalanJuz, Value: 5}))
	assert.False(t, c.Meets(models.BadgeRule{Type: models.RuleHafalanJuz, Value: 6}))
	assert.True(t, c.Meets(models.BadgeRule{Type: models.RuleMumtazCount, Value: 2}))
	assert.False(t, c.Meets(models.BadgeRule{Type: models.RuleMumtazCount, Value: 3}))
	assert.False(t, c.Meets(models.BadgeRule{Type: "unknown", Value: 0}))
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestSweepLogsUnknownRuleTypeOnce(t *testing.T) {
	store := setup(t)
	svc := NewBadgeService(store)
	for _, nama := range []string{"Ahmad", "Fatimah", "Umar"} {
		createSantri(t, store, nama, "L")
	}
	customBadge(t, store, "RAJIN_SHOLAT", 50, models.BadgeRule{Type: "presensi_streak", Value: 7})
	customBadge(t, store, "RAJIN_SUBUH", 80, models.BadgeRule{Type: "presensi_streak", Value: 30})
	customBadge(t, store, "MURAJAAH", 20, models.BadgeRule{Type: "murajaah_count", Value: 3})
	buf := captureLog(t)

	report, err := svc.SweepAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, strings.Count(buf.String(), `unknown rule type "presensi_streak"`))
	assert.Equal(t, 1, strings.Count(buf.String(), `unknown rule type "murajaah_count"`))

	// a fresh run logs again
	buf.Reset()
	_, err = svc.CheckAndAwardBadges(t.Context(), firstSantriID(t, store))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), `unknown rule type "presensi_streak"`))
}

func firstSantriID(t *testing.T, store *memory.Store) string {
	t.Helper()
	all, err := store.ListSantri(t.Context(), repository.SantriFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	return all[0].ID
}
