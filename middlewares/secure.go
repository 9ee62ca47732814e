package middlewares

import (
	"strconv"

	"github.com/buildwithgo/docserve"
)

type SecureConfig struct {
	XSSProtection      string
	ContentTypeOptions string
	FrameOptions       string
	ReferrerPolicy     string
	// HSTSMaxAge is in seconds; zero disables the header.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

func DefaultSecureConfig() SecureConfig {
	return SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeOptions: "nosniff",
		FrameOptions:       "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
		HSTSMaxAge:         31536000,
	}
}

// Secure adds security headers to the response.
func Secure(config ...SecureConfig) docserve.Middleware {
	cfg := DefaultSecureConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(next docserve.Handler) docserve.Handler {
		return func(c *docserve.Context) error {
			if cfg.XSSProtection != "" {
				c.Writer.Header().Set("X-XSS-Protection", cfg.XSSProtection)
			}
			if cfg.ContentTypeOptions != "" {
				c.Writer.Header().Set("X-Content-Type-Options", cfg.ContentTypeOptions)
			}
			if cfg.FrameOptions != "" {
				c.Writer.Header().Set("X-Frame-Options", cfg.FrameOptions)
			}
			if cfg.ReferrerPolicy != "" {
				c.Writer.Header().Set("Referrer-Policy", cfg.ReferrerPolicy)
			}

			// HSTS
			if cfg.HSTSMaxAge > 0 && (c.Request.TLS != nil || c.Request.Header.Get("X-Forwarded-Proto") == "https") {
				val := "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
				if cfg.HSTSIncludeSubdomains {
					val += "; includeSubDomains"
				}
				c.Writer.Header().Set("Strict-Transport-Security", val)
			}
			return next(c)
		}
	}
}
