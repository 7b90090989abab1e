package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"santri-progress-system/models"
	"santri-progress-system/repository"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	ErrSantriNotFound    = errors.New("santri not found")
	ErrInvalidAdjustment = errors.New("amount must be non-zero and reason is required")
)

type PointsService struct {
	Store repository.Store
}

func NewPointsService(store repository.Store) *PointsService {
	return &PointsService{Store: store}
}

// PointsResult is the santri's state after a point-changing event.
type PointsResult struct {
	SantriID    string                   `json:"santri_id"`
	Entry       models.PointsLedgerEntry `json:"entry"`
	TotalPoints int64                    `json:"total_points"`
	Level       LevelInfo                `json:"level"`
}

// recordPoints appends a ledger entry and rewrites the santri's cached total
// and level from the ledger sum. Must run inside a transaction that already
// holds LockSantri for entry.SantriID, otherwise two writers can each sum a
// ledger missing the other's row.
func recordPoints(ctx context.Context, tx repository.Store, entry *models.PointsLedgerEntry) (*PointsResult, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := tx.AppendLedger(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger: %w", err)
	}

	total, err := tx.SumLedger(ctx, entry.SantriID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	info := CalculateLevel(total)
	if err := tx.UpdateSantriPoints(ctx, entry.SantriID, total, info.Level); err != nil {
		return nil, fmt.Errorf("update santri points: %w", err)
	}

	return &PointsResult{
		SantriID:    entry.SantriID,
		Entry:       *entry,
		TotalPoints: total,
		Level:       info,
	}, nil
}

// AdjustPoints appends a manual, signed ledger entry.
func (s *PointsService) AdjustPoints(ctx context.Context, santriID string, amount int64, reason, actor string) (*PointsResult, error) {
	reason = strings.TrimSpace(reason)
	if amount == 0 || reason == "" {
		return nil, ErrInvalidAdjustment
	}

	var result *PointsResult
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.LockSantri(ctx, santriID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSantriNotFound
			}
			return err
		}
		var err error
		result, err = recordPoints(ctx, tx, &models.PointsLedgerEntry{
			SantriID:  santriID,
			Amount:    amount,
			Reason:    reason,
			CreatedBy: actor,
		})
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrSantriNotFound) {
			log.Printf("❌ [POINTS] Adjustment failed for %s: %v", santriID, err)
		}
		return nil, err
	}

	log.Printf("🎯 [POINTS] %s → %+d (%s), total=%d, level=%d",
		santriID, amount, reason, result.TotalPoints, result.Level.Level)
	return result, nil
}

// SantriProgress is the full gamification view of one santri.
type SantriProgress struct {
	Santri       models.Santri              `json:"santri"`
	TotalPoints  int64                      `json:"total_points"`
	Level        LevelInfo                  `json:"level"`
	Badges       []models.SantriBadge       `json:"badges"`
	RecentPoints []models.PointsLedgerEntry `json:"recent_points"`
}

func (s *PointsService) Progress(ctx context.Context, santriID string) (*SantriProgress, error) {
	santri, err := s.Store.FindSantri(ctx, santriID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSantriNotFound
		}
		return nil, err
	}
	badges, err := s.Store.EarnedBadges(ctx, santriID)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.Store.ListLedger(ctx, santriID, 0, 5)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []models.SantriBadge{}
	}
	return &SantriProgress{
		Santri:       *santri,
		TotalPoints:  santri.TotalPoints,
		Level:        CalculateLevel(santri.TotalPoints),
		Badges:       badges,
		RecentPoints: recent,
	}, nil
}

type LedgerPage struct {
	Entries    []models.PointsLedgerEntry `json:"entries"`
	Page       int                        `json:"page"`
	Size       int                        `json:"size"`
	TotalItems int64                      `json:"total_items"`
	TotalPages int                        `json:"total_pages"`
}

func (s *PointsService) Ledger(ctx context.Context, santriID string, page, size int) (*LedgerPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	if _, err := s.Store.FindSantri(ctx, santriID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSantriNotFound
		}
		return nil, err
	}

	entries, total, err := s.Store.ListLedger(ctx, santriID, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.PointsLedgerEntry{}
	}
	return &LedgerPage{
		Entries:    entries,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

type ReconcileReport struct {
	Checked int      `json:"checked"`
	Fixed   int      `json:"fixed"`
	Drifted []string `json:"drifted"`
}

// ReconcileAll rewrites every santri's cached total and level from the ledger.
// The unlocked totals only pick candidates; each candidate is re-read and
// fixed under its row lock so a concurrent award is never overwritten.
func (s *PointsService) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	santri, err := s.Store.ListSantri(ctx, repository.SantriFilter{})
	if err != nil {
		return nil, fmt.Errorf("list santri: %w", err)
	}
	totals, err := s.Store.LedgerTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger totals: %w", err)
	}

	report := &ReconcileReport{Drifted: []string{}}
	for _, st := range santri {
		report.Checked++
		total := totals[st.ID]
		if st.TotalPoints == total && st.Level == CalculateLevel(total).Level {
			continue
		}
		fixed, err := s.reconcileOne(ctx, st.ID)
		if err != nil {
			return report, fmt.Errorf("reconcile %s: %w", st.ID, err)
		}
		if fixed {
			report.Fixed++
			report.Drifted = append(report.Drifted, st.ID)
		}
	}
	return report, nil
}

func (s *PointsService) reconcileOne(ctx context.Context, santriID string) (bool, error) {
	fixed := false
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		st, err := tx.LockSantri(ctx, santriID)
		if err != nil {
			return err
		}
		total, err := tx.SumLedger(ctx, santriID)
		if err != nil {
			return err
		}
		level := CalculateLevel(total).Level
		if st.TotalPoints == total && st.Level == level {
			return nil
		}
		if err := tx.UpdateSantriPoints(ctx, santriID, total, level); err != nil {
			return err
		}
		log.Printf("⚠️ [POINTS] Reconciled %s: cached=%d/L%d ledger=%d/L%d",
			santriID, st.TotalPoints, st.Level, total, level)
		fixed = true
		return nil
	})
	return fixed, err
}

type LeaderboardFilter struct {
	Limit   int
	Gender  string
	Halaqoh string
}

type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	SantriID    string    `json:"santri_id"`
	Nama        string    `json:"nama"`
	Halaqoh     string    `json:"halaqoh,omitempty"`
	TotalPoints int64     `json:"total_points"`
	Level       LevelInfo `json:"level"`
}

// Leaderboard ranks active santri by cached points; ties share a rank and are
// listed in Indonesian collation order of their names.
func (s *PointsService) Leaderboard(ctx context.Context, filter LeaderboardFilter) ([]LeaderboardEntry, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 10
	}
	santri, err := s.Store.ListSantri(ctx, repository.SantriFilter{
		ActiveOnly: true,
		Gender:     filter.Gender,
		Halaqoh:    filter.Halaqoh,
	})
	if err != nil {
		return nil, err
	}

	col := collate.New(language.Indonesian, collate.IgnoreCase)
	sort.SliceStable(santri, func(i, j int) bool {
		if santri[i].TotalPoints != santri[j].TotalPoints {
			return santri[i].TotalPoints > santri[j].TotalPoints
		}
		return col.CompareString(santri[i].Nama, santri[j].Nama) < 0
	})

	if len(santri) > filter.Limit {
		santri = santri[:filter.Limit]
	}
	out := make([]LeaderboardEntry, len(santri))
	for i, st := range santri {
		rank := i + 1
		if i > 0 && st.TotalPoints == santri[i-1].TotalPoints {
			rank = out[i-1].Rank
		}
		out[i] = LeaderboardEntry{
			Rank:        rank,
			SantriID:    st.ID,
			Nama:        st.Nama,
			Halaqoh:     st.Halaqoh,
			TotalPoints: st.TotalPoints,
			Level:       CalculateLevel(st.TotalPoints),
		}
	}
	return out, nil
}
