package middlewares

import (
	"net/http"
	"strings"

	"github.com/buildwithgo/docserve"
)

// CORSConfig defines the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins is a list of origins a cross-domain request can be executed from.
	AllowOrigins []string
	// AllowMethods is a list of methods the client is allowed to use with cross-domain requests.
	AllowMethods []string
	// AllowHeaders is a list of non-simple headers the client is allowed to use with cross-domain requests.
	AllowHeaders []string
}

// DefaultCORSConfig allows any origin to read the documentation.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Accept", "Content-Type", "Authorization"},
	}
}

// CORS returns a Cross-Origin Resource Sharing middleware.
func CORS(config ...CORSConfig) docserve.Middleware {
	cfg := DefaultCORSConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	methods := strings.Join(cfg.AllowMethods, ",")
	headers := strings.Join(cfg.AllowHeaders, ",")

	return func(next docserve.Handler) docserve.Handler {
		return func(c *docserve.Context) error {
			origin := c.Request.Header.Get("Origin")
			allowOrigin := ""
			for _, o := range cfg.AllowOrigins {
				if o == "*" || (origin != "" && o == origin) {
					allowOrigin = o
					break
				}
			}

			if allowOrigin != "" {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", allowOrigin)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if allowOrigin != "*" {
					h.Add("Vary", "Origin")
				}
			}

			// Preflight
			if c.Request.Method == http.MethodOptions && c.Request.Header.Get("Access-Control-Request-Method") != "" {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
