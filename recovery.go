package docserve

import (
	"html/template"
	"net/http"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RecoveryOption configures the Recovery middleware.
type RecoveryOption func(*recoveryConfig)

type recoveryConfig struct {
	htmlDebug  bool
	logger     *zerolog.Logger
	stackBytes int
}

// WithHTMLDebug renders the panic and stack trace as an HTML page.
// Development only: it exposes internals to the client.
func WithHTMLDebug(enabled bool) RecoveryOption {
	return func(c *recoveryConfig) {
		c.htmlDebug = enabled
	}
}

// WithRecoveryLogger sets the logger panics are reported to.
// The zerolog global logger is used otherwise.
func WithRecoveryLogger(logger zerolog.Logger) RecoveryOption {
	return func(c *recoveryConfig) {
		c.logger = &logger
	}
}

// Recovery turns a panic in the handler chain into a logged 500 response.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recovery(opts ...RecoveryOption) Middleware {
	cfg := &recoveryConfig{stackBytes: 4 << 10}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = &log.Logger
	}

	return func(next Handler) Handler {
		return func(c *Context) (err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := make([]byte, cfg.stackBytes)
				stack = stack[:runtime.Stack(stack, false)]

				cfg.logger.Error().
					Interface("panic", rec).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Bytes("stack", stack).
					Msg("Recovered from panic")

				if c.Written() {
					return
				}
				if cfg.htmlDebug {
					err = c.HTML(http.StatusInternalServerError, renderDebugPage(c, rec, string(stack)))
					return
				}
				err = c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()
			return next(c)
		}
	}
}

var debugPage = template.Must(template.New("debug").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Internal Server Error - docserve</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 2rem; color: #212529; }
    h1 { color: #dc3545; }
    pre { background: #212529; color: #f8f9fa; padding: 1rem; overflow-x: auto; }
  </style>
</head>
<body>
  <h1>Internal Server Error</h1>
  <p>{{.Method}} {{.Path}}</p>
  <p><strong>Panic: {{.Error}}</strong></p>
  <pre>{{.Stack}}</pre>
</body>
</html>
`))

func renderDebugPage(c *Context, rec interface{}, stack string) string {
	var buf strings.Builder
	err := debugPage.Execute(&buf, struct {
		Method, Path string
		Error        interface{}
		Stack        string
	}{c.Request.Method, c.Request.URL.Path, rec, stack})
	if err != nil {
		return "Internal Server Error (failed to render debug page)"
	}
	return buf.String()
}
