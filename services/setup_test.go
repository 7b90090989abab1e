package services

import (
	"testing"
	"time"

	"santri-progress-system/models"
	"santri-progress-system/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func setup(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	for _, b := range models.DefaultBadgeCatalog {
		b.ID = uuid.NewString()
		require.NoError(t, store.CreateBadge(t.Context(), &b))
	}
	return store
}

func createSantri(t *testing.T, store *memory.Store, nama, gender string) models.Santri {
	t.Helper()
	s := models.Santri{
		ID:       uuid.NewString(),
		Nama:     nama,
		Gender:   gender,
		IsActive: true,
		Level:    1,
	}
	require.NoError(t, store.UpsertSantri(t.Context(), &s))
	return s
}

func completeJuz(store *memory.Store, santriID string, n int) {
	now := time.Now()
	for i := 1; i <= n; i++ {
		store.AddHafalan(models.HafalanProgress{
			ID:          uuid.NewString(),
			SantriID:    santriID,
			Juz:         31 - i,
			LembarSetor: 20,
			Status:      models.HafalanStatusSelesai,
			CompletedAt: &now,
		})
	}
}

func addTasmi(store *memory.Store, santriID, predikat string, n int) {
	for i := 0; i < n; i++ {
		store.AddTasmi(models.TasmiEvaluation{
			ID:           uuid.NewString(),
			SantriID:     santriID,
			Juz:          30,
			Nilai:        95,
			Predikat:     predikat,
			TanggalUjian: time.Now(),
		})
	}
}

func customBadge(t *testing.T, store *memory.Store, code string, poin int64, rule models.BadgeRule) models.Badge {
	t.Helper()
	b := models.Badge{
		ID:       uuid.NewString(),
		Code:     code,
		Nama:     code,
		Kategori: models.KategoriKhusus,
		Poin:     poin,
		Syarat:   datatypes.NewJSONType(rule),
	}
	require.NoError(t, store.CreateBadge(t.Context(), &b))
	return b
}
