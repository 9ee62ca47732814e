package middlewares

import (
	"github.com/google/uuid"

	"github.com/buildwithgo/docserve"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLength = 128
)

// RequestID adds an X-Request-ID header to the response and context. Missing
// or oversized incoming IDs are replaced with a random UUID.
func RequestID() docserve.Middleware {
	return func(next docserve.Handler) docserve.Handler {
		return func(c *docserve.Context) error {
			rid := c.Request.Header.Get(RequestIDHeader)
			if rid == "" || len(rid) > maxRequestIDLength {
				rid = uuid.NewString()
			}
			c.Writer.Header().Set(RequestIDHeader, rid)
			c.Set(RequestIDKey, rid)
			return next(c)
		}
	}
}
