package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"santri-progress-system/models"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type ColorTier string

const (
	TierAcceptable ColorTier = "acceptable"
	TierWarning    ColorTier = "warning"
	TierCritical   ColorTier = "critical"
)

// ClassifyAttendance buckets a percentage: >=75 acceptable, 50-74 warning, <50 critical.
func ClassifyAttendance(percentage int) ColorTier {
	switch {
	case percentage >= 75:
		return TierAcceptable
	case percentage >= 50:
		return TierWarning
	default:
		return TierCritical
	}
}

// ActivityKey folds an activity name so spelling variants group together:
// "Sholat  Subuh ", "sholat subuh" and "Sholat Šubuh" share one key.
func ActivityKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(name))), " ")
}

func activityTitle(key string) string {
	return cases.Title(language.Indonesian).String(key)
}

func attendancePercent(hadir, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(hadir) / float64(total)))
}

type SingleActivitySummary struct {
	SantriID      string    `json:"santri_id"`
	Nama          string    `json:"nama"`
	Hadir         int       `json:"hadir"`
	Izin          int       `json:"izin"`
	Sakit         int       `json:"sakit"`
	Alpa          int       `json:"alpa"`
	TotalSessions int       `json:"total_sessions"`
	Percentage    int       `json:"percentage"`
	ColorTier     ColorTier `json:"color_tier"`
}

type ActivityRatio struct {
	Activity   string    `json:"activity"`
	Hadir      int       `json:"hadir"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	ColorTier  ColorTier `json:"color_tier"`
}

type MultiActivitySummary struct {
	SantriID   string          `json:"santri_id"`
	Nama       string          `json:"nama"`
	Activities []ActivityRatio `json:"activities"`
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// sessionIndex is the deduplicated view of a record set: one status per
// (activity, santri, day) and the distinct session days of each activity.
type sessionIndex struct {
	// activity → day
	sessions map[string]map[string]bool
	// activity → santri → day
	status map[string]map[string]map[string]models.AttendanceRecord
	// santri ids present in records
	seen map[string]bool
}

func indexRecords(records []models.AttendanceRecord) *sessionIndex {
	idx := &sessionIndex{
		sessions: make(map[string]map[string]bool),
		status:   make(map[string]map[string]map[string]models.AttendanceRecord),
		seen:     make(map[string]bool),
	}
	for _, r := range records {
		key := ActivityKey(r.ActivityName)
		if key == "" {
			continue
		}
		day := dayKey(r.Date)

		if idx.sessions[key] == nil {
			idx.sessions[key] = make(map[string]bool)
			idx.status[key] = make(map[string]map[string]models.AttendanceRecord)
		}
		idx.sessions[key][day] = true

		bySantri := idx.status[key][r.SantriID]
		if bySantri == nil {
			bySantri = make(map[string]models.AttendanceRecord)
			idx.status[key][r.SantriID] = bySantri
		}
		// variants folded onto the same day: the latest write wins
		if prev, ok := bySantri[day]; !ok || r.UpdatedAt.After(prev.UpdatedAt) {
			bySantri[day] = r
		}
		idx.seen[r.SantriID] = true
	}
	return idx
}

// mergeRoster returns the roster plus any santri that only appear in records.
func mergeRoster(roster []models.Santri, seen map[string]bool) []models.Santri {
	out := make([]models.Santri, 0, len(roster)+len(seen))
	known := make(map[string]bool, len(roster))
	for _, s := range roster {
		if known[s.ID] {
			continue
		}
		known[s.ID] = true
		out = append(out, s)
	}
	extra := make([]string, 0)
	for id := range seen {
		if !known[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		out = append(out, models.Santri{ID: id, Nama: id})
	}

	col := collate.New(language.Indonesian, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Nama, out[j].Nama) < 0
	})
	return out
}

// RollupSingleActivity counts statuses per santri for one activity. The
// denominator is the number of distinct days the activity was held in the
// record set, so a santri without rows for some days is short of 100%.
func RollupSingleActivity(roster []models.Santri, records []models.AttendanceRecord, activity string) []SingleActivitySummary {
	idx := indexRecords(records)
	key := ActivityKey(activity)
	total := len(idx.sessions[key])

	seen := make(map[string]bool)
	for id := range idx.status[key] {
		seen[id] = true
	}

	santri := mergeRoster(roster, seen)
	out := make([]SingleActivitySummary, 0, len(santri))
	for _, s := range santri {
		sum := SingleActivitySummary{
			SantriID:      s.ID,
			Nama:          s.Nama,
			TotalSessions: total,
		}
		for _, r := range idx.status[key][s.ID] {
			switch r.Status {
			case models.StatusHadir:
				sum.Hadir++
			case models.StatusIzin:
				sum.Izin++
			case models.StatusSakit:
				sum.Sakit++
			case models.StatusAlpa:
				sum.Alpa++
			}
		}
		sum.Percentage = attendancePercent(sum.Hadir, total)
		sum.ColorTier = ClassifyAttendance(sum.Percentage)
		out = append(out, sum)
	}
	return out
}

// RollupMultiActivity reports hadir/total per (santri, activity) for every
// activity held in the record set.
func RollupMultiActivity(roster []models.Santri, records []models.AttendanceRecord) []MultiActivitySummary {
	idx := indexRecords(records)

	keys := make([]string, 0, len(idx.sessions))
	for k := range idx.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	santri := mergeRoster(roster, idx.seen)
	out := make([]MultiActivitySummary, 0, len(santri))
	for _, s := range santri {
		sum := MultiActivitySummary{
			SantriID:   s.ID,
			Nama:       s.Nama,
			Activities: make([]ActivityRatio, 0, len(keys)),
		}
		for _, k := range keys {
			total := len(idx.sessions[k])
			hadir := 0
			for _, r := range idx.status[k][s.ID] {
				if r.Status == models.StatusHadir {
					hadir++
				}
			}
			pct := attendancePercent(hadir, total)
			sum.Activities = append(sum.Activities, ActivityRatio{
				Activity:   activityTitle(k),
				Hadir:      hadir,
				Total:      total,
				Percentage: pct,
				ColorTier:  ClassifyAttendance(pct),
			})
		}
		out = append(out, sum)
	}
	return out
}
