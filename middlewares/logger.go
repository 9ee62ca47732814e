package middlewares

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/buildwithgo/docserve"
)

// Logger writes one log event per request once the handler chain returns.
func Logger(logger zerolog.Logger) docserve.Middleware {
	return func(next docserve.Handler) docserve.Handler {
		return func(c *docserve.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			status := c.Status()
			if err != nil && !c.Written() {
				status = docserve.StatusCode(err)
			}
			if status == 0 {
				status = http.StatusOK
			}

			event := logger.Info()
			switch {
			case status >= 500:
				event = logger.Error().Err(err)
			case status >= 400:
				event = logger.Warn()
			}

			if rid, ok := c.Get(RequestIDKey).(string); ok {
				event = event.Str("request_id", rid)
			}

			event.
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("status", status).
				Dur("duration", duration).
				Msg("request")
			return err
		}
	}
}
