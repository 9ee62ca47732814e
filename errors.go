package docserve

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by the App when no route matches a request.
var ErrNotFound = NewHTTPError(http.StatusNotFound)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code     int
	Message  interface{}
	Internal error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("code=%d, message=%v", e.Code, e.Message)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(code int, message ...interface{}) *HTTPError {
	he := &HTTPError{Code: code, Message: http.StatusText(code)}
	if len(message) > 0 {
		he.Message = message[0]
	}
	return he
}

// SetInternal returns a copy of e carrying the internal error.
func (e *HTTPError) SetInternal(err error) *HTTPError {
	he := *e
	he.Internal = err
	return &he
}

// Unwrap returns the internal error.
func (e *HTTPError) Unwrap() error {
	return e.Internal
}

// ErrorHandler writes the response for an error returned by a handler chain.
// code is the status resolved by StatusCode.
type ErrorHandler func(c *Context, err error, code int)

// StatusCode maps err to an HTTP status: the code of an *HTTPError anywhere in
// the chain, 500 otherwise.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// DefaultErrorHandler answers with net/http's plain text error format.
func DefaultErrorHandler(c *Context, err error, code int) {
	if code == http.StatusNotFound {
		http.NotFound(c.Writer, c.Request)
		return
	}

	msg := http.StatusText(code)
	var he *HTTPError
	if errors.As(err, &he) {
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
	}
	http.Error(c.Writer, msg, code)
}
