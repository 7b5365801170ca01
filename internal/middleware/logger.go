package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Logger records one line per request. It runs the error handler itself so the
// logged status is the one the client receives.
func Logger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		evt := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			evt = logger.Error()
		case status >= fiber.StatusBadRequest:
			evt = logger.Warn()
		}

		requestID, _ := c.Locals(RequestIDKey).(string)
		evt = evt.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start))
		if uid, ok := c.Locals("user_id").(uint); ok {
			evt = evt.Uint("user_id", uid)
		}
		evt.Msg("request completed")
		return nil
	}
}
