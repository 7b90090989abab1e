// Package config loads service settings from .env and the process environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env when present. A missing file is not an error.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
}

// GetEnv returns the value of key, or def[0] when unset or blank.
func GetEnv(key string, def ...string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

type Config struct {
	DatabaseURL    string
	Port           string
	GatewayToken   string
	ServiceToken   string
	AllowedOrigins []string
	Location       *time.Location

	AuthServiceURL    string
	MasterdataSyncURL string
	PresensiSyncURL   string
	SyncInterval      time.Duration

	BadgeSweepInterval time.Duration
	ReconcileAt        string
	SeedBadges         bool

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string
}

// Load builds Config from the environment. DATABASE_URL and
// GATEWAY_SERVICE_TOKEN are required.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       GetEnv("DATABASE_URL"),
		Port:              GetEnv("PORT", "5300"),
		GatewayToken:      GetEnv("GATEWAY_SERVICE_TOKEN"),
		AuthServiceURL:    strings.TrimRight(GetEnv("AUTH_SERVICE_URL"), "/"),
		MasterdataSyncURL: GetEnv("MASTERDATA_SYNC_URL"),
		PresensiSyncURL:   GetEnv("PRESENSI_SYNC_URL"),
		ReconcileAt:       GetEnv("RECONCILE_AT", "02:00"),
		SeedBadges:        strings.EqualFold(GetEnv("SEED_BADGES", "true"), "true"),
		R2AccountID:       GetEnv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:     GetEnv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret: GetEnv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:          GetEnv("R2_BUCKET_NAME"),
		CDNBaseURL:        GetEnv("CDN_BASE_URL"),
	}
	// outbound calls reuse the gateway token unless a dedicated one is set
	cfg.ServiceToken = GetEnv("SANTRI_SERVICE_TOKEN", cfg.GatewayToken)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.GatewayToken == "" {
		return nil, fmt.Errorf("GATEWAY_SERVICE_TOKEN environment variable not set")
	}

	for _, o := range strings.Split(GetEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	loc, err := time.LoadLocation(GetEnv("TIMEZONE", "Asia/Jakarta"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.SyncInterval, err = parseDuration("SYNC_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.BadgeSweepInterval, err = parseDuration("BADGE_SWEEP_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(GetEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
