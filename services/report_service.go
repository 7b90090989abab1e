package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var ErrArchiveDisabled = errors.New("object storage is not configured")

// ObjectUploader stores a blob and returns where it can be fetched.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type ReportService struct {
	Attendance *AttendanceService
	Uploader   ObjectUploader
}

func NewReportService(attendance *AttendanceService, uploader ObjectUploader) *ReportService {
	return &ReportService{Attendance: attendance, Uploader: uploader}
}

type ExportResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

// RekapKey builds rekap/<yyyy>-<mm>/<activity-slug>-<id>.csv.
func RekapKey(q RekapQuery, id string) string {
	name := "semua-kegiatan"
	if q.Activity != "" {
		name = slug.Make(q.Activity)
	}
	if q.Gender != "" {
		name += "-" + slug.Make(q.Gender)
	}
	return fmt.Sprintf("rekap/%04d-%02d/%s-%s.csv", q.Year, q.Month, name, id)
}

// ExportRekap renders the rekap as CSV and archives it.
func (s *ReportService) ExportRekap(ctx context.Context, q RekapQuery) (*ExportResult, error) {
	if s.Uploader == nil {
		return nil, ErrArchiveDisabled
	}
	rekap, err := s.Attendance.Rekap(ctx, q)
	if err != nil {
		return nil, err
	}
	body, rows, err := RenderRekapCSV(rekap)
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}

	key := RekapKey(q, uuid.NewString())
	url, err := s.Uploader.Upload(ctx, key, body, "text/csv")
	if err != nil {
		log.Printf("❌ [REKAP] Upload %s failed: %v", key, err)
		return nil, err
	}
	log.Printf("📦 [REKAP] Archived %d rows → %s", rows, key)
	return &ExportResult{Key: key, URL: url, Rows: rows}, nil
}

// RenderRekapCSV writes one row per santri (single) or per santri-activity
// pair (multi). It returns the data row count, header excluded.
func RenderRekapCSV(r *Rekap) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	itoa := strconv.Itoa

	rows := 0
	if r.IsSingle() {
		if err := w.Write([]string{"santri_id", "nama", "hadir", "izin", "sakit", "alpa", "total_sesi", "persentase", "kategori"}); err != nil {
			return nil, 0, err
		}
		for _, s := range r.Single {
			rec := []string{s.SantriID, s.Nama, itoa(s.Hadir), itoa(s.Izin), itoa(s.Sakit), itoa(s.Alpa),
				itoa(s.TotalSessions), itoa(s.Percentage), string(s.ColorTier)}
			if err := w.Write(rec); err != nil {
				return nil, 0, err
			}
			rows++
		}
	} else {
		if err := w.Write([]string{"santri_id", "nama", "kegiatan", "hadir", "total", "persentase", "kategori"}); err != nil {
			return nil, 0, err
		}
		for _, s := range r.Multi {
			for _, a := range s.Activities {
				rec := []string{s.SantriID, s.Nama, a.Activity, itoa(a.Hadir), itoa(a.Total),
					itoa(a.Percentage), string(a.ColorTier)}
				if err := w.Write(rec); err != nil {
					return nil, 0, err
				}
				rows++
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), rows, nil
}
