package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"santri-progress-system/repository"
)

// RekapQuery selects one calendar month of presensi. An empty Activity asks
// for the multi-activity view.
type RekapQuery struct {
	Month    int    `json:"month" query:"month" validate:"required,min=1,max=12"`
	Year     int    `json:"year" query:"year" validate:"required,min=2000,max=2100"`
	Activity string `json:"activity" query:"activity" validate:"omitempty,max=128"`
	Gender   string `json:"gender" query:"gender" validate:"omitempty,oneof=L P"`
}

// Period returns [first day of month, first day of next month) in loc.
func (q RekapQuery) Period(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

type Rekap struct {
	Month    int                     `json:"month"`
	Year     int                     `json:"year"`
	Activity string                  `json:"activity,omitempty"`
	Gender   string                  `json:"gender,omitempty"`
	Single   []SingleActivitySummary `json:"single,omitempty"`
	Multi    []MultiActivitySummary  `json:"multi,omitempty"`
}

func (r *Rekap) IsSingle() bool {
	return r.Activity != ""
}

type AttendanceService struct {
	Store    repository.Store
	Location *time.Location
}

func NewAttendanceService(store repository.Store, loc *time.Location) *AttendanceService {
	return &AttendanceService{Store: store, Location: loc}
}

// Rekap loads the month's records and the matching active roster, then runs
// the single or multi-activity rollup.
func (s *AttendanceService) Rekap(ctx context.Context, q RekapQuery) (*Rekap, error) {
	from, to := q.Period(s.Location)
	q.Activity = strings.TrimSpace(q.Activity)

	records, err := s.Store.ListAttendance(ctx, repository.AttendanceFilter{
		From:   from,
		To:     to,
		Gender: q.Gender,
	})
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	roster, err := s.Store.ListSantri(ctx, repository.SantriFilter{
		ActiveOnly: true,
		Gender:     q.Gender,
	})
	if err != nil {
		return nil, fmt.Errorf("list santri: %w", err)
	}

	rekap := &Rekap{
		Month:    q.Month,
		Year:     q.Year,
		Activity: q.Activity,
		Gender:   q.Gender,
	}
	if rekap.IsSingle() {
		rekap.Single = RollupSingleActivity(roster, records, q.Activity)
	} else {
		rekap.Multi = RollupMultiActivity(roster, records)
	}
	return rekap, nil
}
