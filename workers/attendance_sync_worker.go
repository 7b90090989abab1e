// workers/attendance_sync_worker.go
package workers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"santri-progress-system/models"
	"santri-progress-system/repository"
	"santri-progress-system/utils"

	"github.com/google/uuid"
)

// PresensiRow matches one row of the attendance service's change feed.
type PresensiRow struct {
	SantriID     string    `json:"santri_id" validate:"required"`
	ActivityName string    `json:"activity_name" validate:"required"`
	Date         string    `json:"date" validate:"required,datetime=2006-01-02"`
	Status       string    `json:"status" validate:"required,oneof=hadir izin sakit alpa"`
	Keterangan   string    `json:"keterangan"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type GetPresensiChangesResponse struct {
	Presensi []PresensiRow `json:"presensi"`
}

type AttendanceSyncWorker struct {
	store    repository.Store
	interval time.Duration
	location *time.Location
	client   syncClient
}

func NewAttendanceSyncWorker(store repository.Store, baseURL, serviceToken string, interval time.Duration, loc *time.Location, httpClient *http.Client) *AttendanceSyncWorker {
	if httpClient == nil {
		httpClient = utils.HTTPClient
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceSyncWorker{
		store:    store,
		interval: interval,
		location: loc,
		client: syncClient{
			baseURL:      baseURL,
			endpointPath: "/api/v1/public/presensi",
			serviceToken: serviceToken,
			httpClient:   httpClient,
		},
	}
}

func (w *AttendanceSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Attendance Sync Worker (presensi → attendance_records)…")
	go runTicker(ctx, "attendance", w.interval, w.SyncOnce)
}

// SyncOnce mirrors presensi rows changed since the newest local row. Invalid
// rows are skipped; the batch is upserted on (santri, activity, date).
func (w *AttendanceSyncWorker) SyncOnce(ctx context.Context) error {
	since, err := w.store.LatestAttendanceUpdate(ctx)
	if err != nil {
		return fmt.Errorf("read attendance cursor: %w", err)
	}

	var response GetPresensiChangesResponse
	if err := w.client.fetchSince(ctx, since, &response); err != nil {
		return err
	}
	if len(response.Presensi) == 0 {
		return nil
	}

	records := make([]models.AttendanceRecord, 0, len(response.Presensi))
	skipped := 0
	for _, row := range response.Presensi {
		if err := utils.ValidateStruct(&row); err != nil {
			skipped++
			log.Printf("[SYNC] ⚠️ Skipping presensi row (santri=%q, activity=%q): %v", row.SantriID, row.ActivityName, err)
			continue
		}
		date, err := time.ParseInLocation("2006-01-02", row.Date, w.location)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, models.AttendanceRecord{
			ID:           uuid.NewString(),
			SantriID:     row.SantriID,
			ActivityName: strings.TrimSpace(row.ActivityName),
			Date:         date,
			Status:       models.AttendanceStatus(row.Status),
			Keterangan:   row.Keterangan,
			UpdatedAt:    row.UpdatedAt,
		})
	}

	n, err := w.store.UpsertAttendance(ctx, records)
	if err != nil {
		// cursor is read from the table, so the same window is retried next tick
		return fmt.Errorf("upsert %d presensi row(s): %w", len(records), err)
	}
	log.Printf("[SYNC] ✅ Presensi: %d received, %d upserted, %d skipped", len(response.Presensi), n, skipped)
	return nil
}
