package middleware

import (
	"time"

	"localmade/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// ContextLogger injects the request ID into the request context as the
// correlation ID and logs one structured line per request.
func ContextLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		ctx := observability.WithCorrelationID(c.UserContext(), rid)
		c.SetUserContext(ctx)

		start := time.Now()
		err := c.Next()

		observability.GlobalLogger.InfoContext(ctx, "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"correlation_id", rid,
		)
		return err
	}
}
