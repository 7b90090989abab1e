package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"santri-progress-system/models"
	"santri-progress-system/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
)

var (
	ErrBadgeNotFound  = errors.New("badge not found")
	ErrBadgeCodeTaken = errors.New("badge code already exists")
)

// Award outcome messages.
const (
	MessageAwarded        = "badge awarded"
	MessageAlreadyOwned   = "already owned"
	MessageBadgeNotFound  = "badge not found"
	MessageSantriNotFound = "santri not found"
)

const systemActor = "system"

type BadgeService struct {
	Store repository.Store
}

func NewBadgeService(store repository.Store) *BadgeService {
	return &BadgeService{Store: store}
}

type AwardResult struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	Badge       *models.Badge `json:"badge,omitempty"`
	TotalPoints int64         `json:"total_points,omitempty"`
	Level       *LevelInfo    `json:"level,omitempty"`
}

// errAlreadyOwned rolls the award transaction back without surfacing an error.
var errAlreadyOwned = errors.New(MessageAlreadyOwned)

// AwardBadge grants one badge and credits its points in a single transaction.
// An unknown badge or santri yields ErrBadgeNotFound or ErrSantriNotFound next
// to a result carrying the message. "already owned" is not an error.
func (s *BadgeService) AwardBadge(ctx context.Context, santriID, code string) (*AwardResult, error) {
	badge, err := s.Store.FindBadgeByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return &AwardResult{Message: MessageBadgeNotFound}, ErrBadgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find badge %s: %w", code, err)
	}

	var points *PointsResult
	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.LockSantri(ctx, santriID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSantriNotFound
			}
			return err
		}

		award := &models.SantriBadge{
			ID:       uuid.NewString(),
			SantriID: santriID,
			BadgeID:  badge.ID,
			EarnedAt: time.Now(),
		}
		if err := tx.InsertSantriBadge(ctx, award); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errAlreadyOwned
			}
			return err
		}

		badgeID := badge.ID
		points, err = recordPoints(ctx, tx, &models.PointsLedgerEntry{
			SantriID:  santriID,
			Amount:    badge.Poin,
			Reason:    "Badge: " + badge.Nama,
			BadgeID:   &badgeID,
			CreatedBy: systemActor,
		})
		return err
	})

	switch {
	case errors.Is(err, errAlreadyOwned):
		return &AwardResult{Message: MessageAlreadyOwned, Badge: badge}, nil
	case errors.Is(err, ErrSantriNotFound):
		return &AwardResult{Message: MessageSantriNotFound}, ErrSantriNotFound
	case err != nil:
		log.Printf("❌ [BADGE] Award %s → %s failed: %v", badge.Code, santriID, err)
		return nil, err
	}

	log.Printf("🎖️ [BADGE] Awarded %s → %s (+%d, total=%d, level=%d)",
		badge.Nama, santriID, badge.Poin, points.TotalPoints, points.Level.Level)
	return &AwardResult{
		Success:     true,
		Message:     MessageAwarded,
		Badge:       badge,
		TotalPoints: points.TotalPoints,
		Level:       &points.Level,
	}, nil
}

// BadgeCounters holds the achievement counts that badge rules compare against.
type BadgeCounters struct {
	CompletedJuz int64 `json:"completed_juz"`
	MumtazCount  int64 `json:"mumtaz_count"`
}

// Meets reports whether the counters satisfy rule. Unknown rule types never match.
func (c BadgeCounters) Meets(rule models.BadgeRule) bool {
	switch rule.Type {
	case models.RuleHafalanJuz:
		return c.CompletedJuz >= rule.Value
	case models.RuleMumtazCount:
		return c.MumtazCount >= rule.Value
	default:
		return false
	}
}

// counterLoader reads each counter at most once per evaluation run.
type counterLoader struct {
	store    repository.Store
	santriID string
	c        BadgeCounters
	juz      bool
	mumtaz   bool
}

func (l *counterLoader) load(ctx context.Context, ruleType string) (BadgeCounters, error) {
	switch ruleType {
	case models.RuleHafalanJuz:
		if !l.juz {
			n, err := l.store.CountCompletedHafalan(ctx, l.santriID)
			if err != nil {
				return l.c, fmt.Errorf("count completed hafalan: %w", err)
			}
			l.c.CompletedJuz, l.juz = n, true
		}
	case models.RuleMumtazCount:
		if !l.mumtaz {
			n, err := l.store.CountTasmiByPredikat(ctx, l.santriID, models.PredikatMumtaz)
			if err != nil {
				return l.c, fmt.Errorf("count mumtaz tasmi: %w", err)
			}
			l.c.MumtazCount, l.mumtaz = n, true
		}
	}
	return l.c, nil
}

// CheckAndAwardBadges evaluates every catalog badge the santri does not own and
// awards the eligible ones. It returns the names awarded in this run; a second
// run with unchanged data returns an empty list. A read failure stops the run
// and returns what was awarded before it.
func (s *BadgeService) CheckAndAwardBadges(ctx context.Context, santriID string) ([]string, error) {
	return s.checkAndAward(ctx, santriID, make(map[string]bool))
}

// checkAndAward does the work of CheckAndAwardBadges. warned holds the unknown
// rule types already logged in this run; a sweep shares one across santri.
func (s *BadgeService) checkAndAward(ctx context.Context, santriID string, warned map[string]bool) ([]string, error) {
	awarded := []string{}

	if _, err := s.Store.FindSantri(ctx, santriID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return awarded, ErrSantriNotFound
		}
		return awarded, err
	}

	catalog, err := s.Store.ListBadges(ctx)
	if err != nil {
		return awarded, fmt.Errorf("list badges: %w", err)
	}
	earned, err := s.Store.EarnedBadges(ctx, santriID)
	if err != nil {
		return awarded, fmt.Errorf("list earned badges: %w", err)
	}
	owned := make(map[string]bool, len(earned))
	for _, sb := range earned {
		owned[sb.BadgeID] = true
	}

	loader := &counterLoader{store: s.Store, santriID: santriID}
	for _, badge := range catalog {
		if owned[badge.ID] {
			continue
		}
		rule := badge.Syarat.Data()
		if rule.Type != models.RuleHafalanJuz && rule.Type != models.RuleMumtazCount {
			if !warned[rule.Type] {
				warned[rule.Type] = true
				log.Printf("⚠️ [BADGE] Skipping badges with unknown rule type %q (first: %s)", rule.Type, badge.Code)
			}
			continue
		}

		counters, err := loader.load(ctx, rule.Type)
		if err != nil {
			log.Printf("❌ [BADGE] Evaluation for %s aborted at %s: %v", santriID, badge.Code, err)
			return awarded, err
		}
		if !counters.Meets(rule) {
			continue
		}

		result, err := s.AwardBadge(ctx, santriID, badge.Code)
		if err != nil {
			return awarded, err
		}
		if result.Success {
			awarded = append(awarded, badge.Nama)
		}
	}
	return awarded, nil
}

type SweepReport struct {
	Checked int `json:"checked"`
	Awarded int `json:"awarded"`
	Failed  int `json:"failed"`
}

// SweepAll runs CheckAndAwardBadges for every active santri. A failure for one
// santri is logged and does not stop the sweep.
func (s *BadgeService) SweepAll(ctx context.Context) (*SweepReport, error) {
	santri, err := s.Store.ListSantri(ctx, repository.SantriFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list santri: %w", err)
	}

	report := &SweepReport{}
	warned := make(map[string]bool)
	for _, st := range santri {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		names, err := s.checkAndAward(ctx, st.ID, warned)
		report.Awarded += len(names)
		if err != nil {
			report.Failed++
			log.Printf("❌ [SWEEP] %s (%s): %v", st.Nama, st.ID, err)
		}
	}
	return report, nil
}

type CreateBadgeInput struct {
	Code      string `json:"code" validate:"omitempty,max=64"`
	Nama      string `json:"nama" validate:"required,max=128"`
	Deskripsi string `json:"deskripsi"`
	IconURL   string `json:"icon_url" validate:"omitempty,url"`
	Kategori  string `json:"kategori" validate:"required,oneof=hafalan presensi adab khusus"`
	Poin      int64  `json:"poin" validate:"min=0"`
	RuleType  string `json:"rule_type" validate:"required,oneof=hafalan_juz mumtaz_count"`
	RuleValue int64  `json:"rule_value" validate:"min=1"`
}

// BadgeCode turns free text into a catalog code, e.g. "Lima Juz!" → "LIMA_JUZ".
func BadgeCode(s string) string {
	return strings.ToUpper(strings.ReplaceAll(slug.Make(s), "-", "_"))
}

func (s *BadgeService) CreateBadge(ctx context.Context, in CreateBadgeInput) (*models.Badge, error) {
	code := in.Code
	if strings.TrimSpace(code) == "" {
		code = in.Nama
	}
	badge := &models.Badge{
		ID:        uuid.NewString(),
		Code:      BadgeCode(code),
		Nama:      strings.TrimSpace(in.Nama),
		Deskripsi: in.Deskripsi,
		IconURL:   in.IconURL,
		Kategori:  models.BadgeKategori(in.Kategori),
		Poin:      in.Poin,
		Syarat:    datatypes.NewJSONType(models.BadgeRule{Type: in.RuleType, Value: in.RuleValue}),
	}
	if badge.Code == "" {
		return nil, fmt.Errorf("badge code is empty after normalization")
	}

	if err := s.Store.CreateBadge(ctx, badge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrBadgeCodeTaken
		}
		return nil, err
	}
	log.Printf("🏷️ [BADGE] Catalog entry created: %s (%d poin)", badge.Code, badge.Poin)
	return badge, nil
}

func (s *BadgeService) ListCatalog(ctx context.Context) ([]models.Badge, error) {
	badges, err := s.Store.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []models.Badge{}
	}
	return badges, nil
}

func (s *BadgeService) EarnedBadges(ctx context.Context, santriID string) ([]models.SantriBadge, error) {
	if _, err := s.Store.FindSantri(ctx, santriID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSantriNotFound
		}
		return nil, err
	}
	earned, err := s.Store.EarnedBadges(ctx, santriID)
	if err != nil {
		return nil, err
	}
	if earned == nil {
		earned = []models.SantriBadge{}
	}
	return earned, nil
}
