package postgres

import (
	"context"
	"testing"
	"time"

	"santri-progress-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// sqlRecorder keeps the rendered SQL of every statement.
type sqlRecorder struct {
	statements []string
}

func (r *sqlRecorder) LogMode(gormLogger.LogLevel) gormLogger.Interface { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{}) {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{}) {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.statements = append(r.statements, sql)
}

func (r *sqlRecorder) last(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, r.statements)
	return r.statements[len(r.statements)-1]
}

// dryRunStore renders SQL without a server: DryRun skips execution and the
// pgx pool never dials because the ping is disabled.
func dryRunStore(t *testing.T) (*Store, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=santri dbname=santri sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	return NewStore(db), rec
}

func TestUpsertSantriWritesInactive(t *testing.T) {
	store, rec := dryRunStore(t)
	require.NoError(t, store.UpsertSantri(t.Context(), &models.Santri{
		ID: "7f0c2c8e-0d55-4a57-9a43-3f3e0f4d9b11", Nama: "Ahmad", Gender: "L", IsActive: false, Level: 1,
	}))

	sql := rec.last(t)
	assert.Contains(t, sql, `ON CONFLICT ("id") DO UPDATE SET`)
	assert.Contains(t, sql, `"is_active"="excluded"."is_active"`)
	assert.Contains(t, sql, "false")
	assert.NotContains(t, sql, "true")
	assert.NotContains(t, sql, `"total_points"="excluded"`)
	assert.NotContains(t, sql, `"level"="excluded"`)
}

func TestUpdateSantriPointsLeavesUpdatedAt(t *testing.T) {
	store, rec := dryRunStore(t)
	_ = store.UpdateSantriPoints(t.Context(), "7f0c2c8e-0d55-4a57-9a43-3f3e0f4d9b11", 1600, 3)

	sql := rec.last(t)
	assert.Contains(t, sql, `UPDATE "santri" SET`)
	assert.Contains(t, sql, `"total_points"=1600`)
	assert.NotContains(t, sql, "updated_at")
}

func TestLockSantriSelectsForUpdate(t *testing.T) {
	store, rec := dryRunStore(t)
	_, _ = store.LockSantri(t.Context(), "7f0c2c8e-0d55-4a57-9a43-3f3e0f4d9b11")
	assert.Contains(t, rec.last(t), "FOR UPDATE")
}

func TestInsertSantriBadgeIgnoresConflict(t *testing.T) {
	store, rec := dryRunStore(t)
	_ = store.InsertSantriBadge(t.Context(), &models.SantriBadge{
		ID: "b7f2", SantriID: "s1", BadgeID: "b1", EarnedAt: time.Now(),
	})
	assert.Contains(t, rec.last(t), `ON CONFLICT ("santri_id","badge_id") DO NOTHING`)
}
