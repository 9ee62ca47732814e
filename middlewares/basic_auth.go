package middlewares

import (
	"net/http"
	"strconv"

	"github.com/buildwithgo/docserve"
)

// BasicAuthValidator reports whether the credentials are accepted. A non-nil
// error aborts the request with that error instead of a 401.
type BasicAuthValidator func(username, password string, c *docserve.Context) (bool, error)

// BasicAuthConfig holds the configuration for Basic Auth middleware.
type BasicAuthConfig struct {
	Validator BasicAuthValidator

	// Realm is sent in the WWW-Authenticate challenge. Default is "Restricted".
	Realm string

	// Skipper defines a function to skip middleware.
	Skipper func(c *docserve.Context) bool
}

func DefaultBasicAuthConfig() BasicAuthConfig {
	return BasicAuthConfig{
		Realm:   "Restricted",
		Skipper: func(c *docserve.Context) bool { return false },
	}
}

// BasicAuth returns a Basic Auth middleware.
func BasicAuth(validator BasicAuthValidator) docserve.Middleware {
	config := DefaultBasicAuthConfig()
	config.Validator = validator
	return BasicAuthWithConfig(config)
}

// BasicAuthWithConfig returns a Basic Auth middleware with custom configuration.
func BasicAuthWithConfig(config BasicAuthConfig) docserve.Middleware {
	if config.Validator == nil {
		panic("BasicAuth: validator function is required")
	}
	defaults := DefaultBasicAuthConfig()
	if config.Skipper == nil {
		config.Skipper = defaults.Skipper
	}
	if config.Realm == "" {
		config.Realm = defaults.Realm
	}
	challenge := "Basic realm=" + strconv.Quote(config.Realm)

	return func(next docserve.Handler) docserve.Handler {
		return func(c *docserve.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			user, password, ok := c.Request.BasicAuth()
			if !ok {
				c.SetHeader("WWW-Authenticate", challenge)
				return docserve.NewHTTPError(http.StatusUnauthorized)
			}

			valid, err := config.Validator(user, password, c)
			if err != nil {
				return err
			}
			if !valid {
				c.SetHeader("WWW-Authenticate", challenge)
				return docserve.NewHTTPError(http.StatusUnauthorized)
			}

			return next(c)
		}
	}
}
