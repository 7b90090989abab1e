// workers/roster_sync_worker.go
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
)

// MasterSantri matches one row of the master-data service's santri feed.
type MasterSantri struct {
	ID        string    `json:"id" validate:"required"`
	NIS       string    `json:"nis"`
	Nama      string    `json:"nama" validate:"required"`
	Gender    string    `json:"gender"`
	Halaqoh   string    `json:"halaqoh"`
	Musyrif   string    `json:"musyrif"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GetSantriChangesResponse struct {
	Santri []MasterSantri `json:"santri"`
}

// normalizeGender accepts "L"/"P" and the spelled-out forms.
func normalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "l", "laki-laki", "laki", "male", "ikhwan":
		return models.GenderLaki
	case "p", "perempuan", "female", "akhwat":
		return models.GenderPerempuan
	default:
		return ""
	}
}

type RosterSyncWorker struct {
	store    repository.Store
	interval time.Duration
	client   syncClient
}

func NewRosterSyncWorker(store repository.Store, baseURL, serviceToken string, interval time.Duration, httpClient *http.Client) *RosterSyncWorker {
	if httpClient == nil {
		httpClient = utils.HTTPClient
	}
	return &RosterSyncWorker{
		store:    store,
		interval: interval,
		client: syncClient{
			baseURL:      baseURL,
			endpointPath: "/api/v1/public/santri",
			serviceToken: serviceToken,
			httpClient:   httpClient,
		},
	}
}

func (w *RosterSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Roster Sync Worker (master-data → santri)…")
	go runTicker(ctx, "roster", w.interval, w.SyncOnce)
}

// SyncOnce pulls every santri changed since the newest local row and upserts
// the roster fields.
func (w *RosterSyncWorker) SyncOnce(ctx context.Context) error {
	since, err := w.store.LatestSantriUpdate(ctx)
	if err != nil {
		return fmt.Errorf("read roster cursor: %w", err)
	}

	var response GetSantriChangesResponse
	if err := w.client.fetchSince(ctx, since, &response); err != nil {
		return err
	}
	if len(response.Santri) == 0 {
		return nil
	}

	var upserted, skipped int
	for _, remote := range response.Santri {
		if err := utils.ValidateStruct(&remote); err != nil {
			skipped++
			log.Printf("[SYNC] ⚠️ Skipping santri %q: %v", remote.ID, err)
			continue
		}
		local := models.Santri{
			ID:       remote.ID,
			NIS:      strings.TrimSpace(remote.NIS),
			Nama:     strings.TrimSpace(remote.Nama),
			Gender:   normalizeGender(remote.Gender),
			Halaqoh:  strings.TrimSpace(remote.Halaqoh),
			Musyrif:  strings.TrimSpace(remote.Musyrif),
			IsActive: remote.IsActive,
			Level:    1,
		}
		local.UpdatedAt = remote.UpdatedAt
		if err := w.store.UpsertSantri(ctx, &local); err != nil {
			skipped++
			log.Printf("[SYNC] ⚠️ Failed to upsert santri (id=%q, nama=%q): %v", remote.ID, remote.Nama, err)
			continue
		}
		upserted++
	}

	log.Printf("[SYNC] ✅ Roster: %d received, %d upserted, %d skipped", len(response.Santri), upserted, skipped)
	return nil
}
