// workers/sync_client.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// syncClient fetches "changes since" pages from a sibling service.
type syncClient struct {
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

// fetchSince GETs <base><path>?since=<RFC3339> and decodes the JSON body into out.
func (c *syncClient) fetchSince(ctx context.Context, since time.Time, out any) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid sync service URL '%s': %w", c.baseURL, err)
	}
	endpointURL := base.JoinPath(c.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", c.serviceToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			log.Printf("[SYNC] ⚠️ Failed to read error body from %s: %v", finalURL, readErr)
		}
		return fmt.Errorf("sync service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode sync service response: %w", err)
	}
	return nil
}

// runTicker calls fn once immediately and then every interval until ctx ends.
func runTicker(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Printf("⚠️ [SYNC] Initial %s sync failed: %v", name, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("❌ [SYNC] %s sync failed: %v", name, err)
			}
		case <-ctx.Done():
			log.Printf("⏹️ %s sync worker stopped", name)
			return
		}
	}
}
