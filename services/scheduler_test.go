package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("02:00")
	require.NoError(t, err)
	assert.Equal(t, uint(2), h)
	assert.Equal(t, uint(0), m)

	h, m, err = ParseClock(" 23:59 ")
	require.NoError(t, err)
	assert.Equal(t, uint(23), h)
	assert.Equal(t, uint(59), m)

	for _, bad := range []string{"", "2", "24:00", "12:60", "ab:cd"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestStartGamificationScheduler(t *testing.T) {
	store := setup(t)
	sched, err := StartGamificationScheduler(t.Context(), SchedulerConfig{
		SweepInterval: time.Hour,
		ReconcileAt:   "02:00",
		Location:      time.UTC,
	}, NewBadgeService(store), NewPointsService(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })

	assert.Len(t, sched.Jobs(), 2)

	_, err = StartGamificationScheduler(t.Context(), SchedulerConfig{ReconcileAt: "nope"}, nil, nil)
	assert.Error(t, err)
}
