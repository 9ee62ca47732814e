package middlewares

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/buildwithgo/docserve"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	// Secret key for HMAC signing
	Secret []byte

	// RSA public key for RSA signing verification
	PublicKey *rsa.PublicKey

	// TokenLookup is a comma separated list of "source:name" pairs tried in
	// order, e.g. "header:Authorization,query:token,cookie:jwt".
	TokenLookup string

	// Auth scheme for header lookup
	AuthScheme string

	// Claims key to store the validated claims in the context
	ContextKey string

	// Error handler
	ErrorHandler func(*docserve.Context, error) error

	// Skipper function to skip middleware for certain requests
	Skipper func(*docserve.Context) bool

	// Signing method
	SigningMethod jwt.SigningMethod

	// TokenCookie, when set, receives tokens accepted from the query string
	// so that later requests from the same page authenticate without it.
	TokenCookie *http.Cookie
}

// JWTOption is a function type for configuring JWT middleware
type JWTOption func(*JWTConfig)

var errMissingToken = errors.New("missing token")

// DefaultJWTConfig returns a default JWT configuration
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		TokenLookup:   "header:Authorization",
		AuthScheme:    "Bearer",
		ContextKey:    "user",
		SigningMethod: jwt.SigningMethodHS256,
		ErrorHandler: func(c *docserve.Context, err error) error {
			c.SetHeader("WWW-Authenticate", `Bearer realm="docs"`)
			return docserve.NewHTTPError(http.StatusUnauthorized, "Unauthorized").SetInternal(err)
		},
		Skipper: func(c *docserve.Context) bool {
			return false
		},
	}
}

// WithSecret sets the HMAC secret
func WithSecret(secret string) JWTOption {
	return func(config *JWTConfig) {
		config.Secret = []byte(secret)
		config.SigningMethod = jwt.SigningMethodHS256
	}
}

// WithRSAPublicKey verifies RS256 tokens with key.
func WithRSAPublicKey(key *rsa.PublicKey) JWTOption {
	return func(config *JWTConfig) {
		config.PublicKey = key
		config.SigningMethod = jwt.SigningMethodRS256
	}
}

// WithTokenCookie stores query string tokens in an HttpOnly cookie called
// name, scoped to path. Add "cookie:<name>" to the token lookup to read it.
func WithTokenCookie(name, path string) JWTOption {
	return func(config *JWTConfig) {
		config.TokenCookie = &http.Cookie{
			Name:     name,
			Path:     path,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		}
	}
}

// WithTokenLookup sets where to look for the token
func WithTokenLookup(lookup string) JWTOption {
	return func(config *JWTConfig) {
		config.TokenLookup = lookup
	}
}

// WithContextKey sets the context key for storing claims
func WithContextKey(key string) JWTOption {
	return func(config *JWTConfig) {
		config.ContextKey = key
	}
}

// WithErrorHandler sets custom error handler
func WithErrorHandler(handler func(*docserve.Context, error) error) JWTOption {
	return func(config *JWTConfig) {
		config.ErrorHandler = handler
	}
}

// WithSkipper sets the skipper function
func WithSkipper(skipper func(*docserve.Context) bool) JWTOption {
	return func(config *JWTConfig) {
		config.Skipper = skipper
	}
}

// JWT creates a new JWT middleware with the given options
func JWT(opts ...JWTOption) docserve.Middleware {
	config := DefaultJWTConfig()

	for _, opt := range opts {
		opt(config)
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{config.SigningMethod.Alg()}))

	return func(next docserve.Handler) docserve.Handler {
		return func(c *docserve.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			token, source, err := extractToken(c, config)
			if err != nil {
				return config.ErrorHandler(c, err)
			}

			parsed, err := parser.Parse(token, keyFunc(config))
			if err != nil {
				return config.ErrorHandler(c, fmt.Errorf("failed to parse token: %w", err))
			}

			if source == "query" && config.TokenCookie != nil {
				setTokenCookie(c, *config.TokenCookie, token, parsed.Claims)
			}

			c.Set(config.ContextKey, parsed.Claims)
			return next(c)
		}
	}
}

// extractToken returns the first token found by the configured lookups and
// the source it came from.
func extractToken(c *docserve.Context, config *JWTConfig) (string, string, error) {
	for _, lookup := range strings.Split(config.TokenLookup, ",") {
		source, key, ok := strings.Cut(strings.TrimSpace(lookup), ":")
		if !ok {
			return "", "", fmt.Errorf("invalid token lookup %q", lookup)
		}

		switch source {
		case "header":
			auth := c.GetHeader(key)
			if auth == "" {
				continue
			}
			if config.AuthScheme == "" {
				return auth, source, nil
			}
			prefix := config.AuthScheme + " "
			if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
				return "", "", fmt.Errorf("invalid authorization scheme, expected %s", config.AuthScheme)
			}
			return auth[len(prefix):], source, nil

		case "query":
			if token := c.QueryParam(key); token != "" {
				return token, source, nil
			}

		case "cookie":
			if cookie, err := c.GetCookie(key); err == nil && cookie.Value != "" {
				return cookie.Value, source, nil
			}

		default:
			return "", "", fmt.Errorf("unsupported token lookup method %q", source)
		}
	}
	return "", "", errMissingToken
}

// setTokenCookie expires the cookie together with the token.
func setTokenCookie(c *docserve.Context, cookie http.Cookie, token string, claims jwt.Claims) {
	cookie.Value = token
	cookie.Secure = c.Request.TLS != nil
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		cookie.Expires = exp.Time
	}
	http.SetCookie(c.Writer, &cookie)
}

func keyFunc(config *JWTConfig) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		switch config.SigningMethod.(type) {
		case *jwt.SigningMethodHMAC:
			if config.Secret == nil {
				return nil, errors.New("HMAC secret not configured")
			}
			return config.Secret, nil
		case *jwt.SigningMethodRSA:
			if config.PublicKey == nil {
				return nil, errors.New("RSA public key not configured")
			}
			return config.PublicKey, nil
		default:
			return nil, fmt.Errorf("unsupported signing method: %v", config.SigningMethod.Alg())
		}
	}
}
