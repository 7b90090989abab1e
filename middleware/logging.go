// middleware/logging.go
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// RequestLogger writes one access-log line per request in loc's wall time.
func RequestLogger(loc *time.Location) fiber.Handler {
	tz := "Asia/Jakarta"
	if loc != nil {
		tz = loc.String()
	}
	return logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path} | ${locals:user_id}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   tz,
	})
}

// Recovery turns handler panics into 500 responses.
func Recovery() fiber.Handler {
	return recover.New(recover.Config{EnableStackTrace: true})
}
