package middleware

import (
	"time"

	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func LoggingMiddleware(logger *utils.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Hand off to the next handler
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		kv := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
			"ip", c.IP(),
			"request_id", c.Locals(requestid.ConfigDefault.ContextKey),
		}
		switch {
		case status >= 500:
			logger.Error("request", append(kv, "err", err)...)
		case status >= 400:
			logger.Warn("request", kv...)
		default:
			logger.Info("request", kv...)
		}

		return err
	}
}
