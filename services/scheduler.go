// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type SchedulerConfig struct {
	SweepInterval time.Duration
	// ReconcileAt is "HH:MM" local time.
	ReconcileAt string
	Location    *time.Location
}

// ParseClock parses "HH:MM" into hours and minutes.
func ParseClock(s string) (uint, uint, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	hh, err := strconv.ParseUint(h, 10, 8)
	if err != nil || hh > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.ParseUint(m, 10, 8)
	if err != nil || mm > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return uint(hh), uint(mm), nil
}

// StartGamificationScheduler runs the periodic badge sweep and the nightly
// ledger reconciliation. The caller owns Shutdown.
func StartGamificationScheduler(ctx context.Context, cfg SchedulerConfig, badges *BadgeService, points *PointsService) (gocron.Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	hour, minute, err := ParseClock(cfg.ReconcileAt)
	if err != nil {
		return nil, err
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Minute
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	// Every SweepInterval: award badges earned since the last pass
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			report, err := badges.SweepAll(ctx)
			if err != nil {
				log.Printf("[Scheduler] Badge sweep error: %v", err)
				return
			}
			if report.Awarded > 0 || report.Failed > 0 {
				log.Printf("✅ [Scheduler] Badge sweep: checked=%d awarded=%d failed=%d",
					report.Checked, report.Awarded, report.Failed)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("badge-sweep"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule badge sweep: %w", err)
	}

	// Nightly: rewrite cached totals from the ledger
	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(func() {
			report, err := points.ReconcileAll(ctx)
			if err != nil {
				log.Printf("[Scheduler] Reconcile error: %v", err)
				return
			}
			log.Printf("✅ [Scheduler] Reconciled points: checked=%d fixed=%d", report.Checked, report.Fixed)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("points-reconcile"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile: %w", err)
	}

	sched.Start()
	log.Printf("⏰ [Scheduler] Started: sweep every %s, reconcile daily at %02d:%02d %s",
		cfg.SweepInterval, hour, minute, loc)
	return sched, nil
}
