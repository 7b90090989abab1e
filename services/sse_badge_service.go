package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// BadgeStreamInterval is how often the stream polls for new awards.
var BadgeStreamInterval = 2 * time.Second

// StreamSantriBadgesSSE streams newly earned badges for the authenticated santri
func (s *BadgeService) StreamSantriBadgesSSE(c *fiber.Ctx) error {
	santriID, _ := c.Locals("user_id").(string)
	if santriID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	// fasthttp reuses header buffers after the handler returns
	santriID = strings.Clone(santriID)
	done := c.Context().Done()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx := context.Background()
		ticker := time.NewTicker(BadgeStreamInterval)
		defer ticker.Stop()

		// Start from the newest award so only new ones are pushed
		var cursor time.Time
		earned, err := s.Store.EarnedBadges(ctx, santriID)
		if err != nil {
			log.Printf("[SSE] init error for santri %s: %v", santriID, err)
		}
		for _, sb := range earned {
			if sb.EarnedAt.After(cursor) {
				cursor = sb.EarnedAt
			}
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				fresh, err := s.Store.BadgesEarnedSince(ctx, santriID, cursor)
				if err != nil {
					log.Printf("[SSE] query error for santri %s: %v", santriID, err)
					continue
				}
				if len(fresh) == 0 {
					w.WriteString(": ping\n\n")
				}
				for _, sb := range fresh {
					payload, _ := json.Marshal(sb)
					fmt.Fprintf(w, "event: badge\ndata: %s\n\n", payload)
					if sb.EarnedAt.After(cursor) {
						cursor = sb.EarnedAt
					}
				}
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-done:
				return
			}
		}
	})

	return nil
}
