package docserve

import (
	"encoding/json"
	"net/http"
)

type param struct {
	key   string
	value string
}

// Context carries the request, the response writer and the route parameters
// for one request. Contexts are pooled by App and must not be retained.
type Context struct {
	Request *http.Request
	Writer  http.ResponseWriter

	response responseWriter
	params   []param
	store    map[string]interface{}
}

type ContextOption func(*Context)

// NewContext creates a new context for the request
func NewContext(w http.ResponseWriter, r *http.Request, options ...ContextOption) *Context {
	ctx := &Context{
		params: make([]param, 0, 4),
	}
	ctx.Reset(w, r)
	for _, option := range options {
		option(ctx)
	}
	return ctx
}

// Reset prepares a pooled context for a new request.
func (c *Context) Reset(w http.ResponseWriter, r *http.Request) {
	c.Request = r
	c.response.reset(w)
	if w != nil {
		c.Writer = &c.response
	} else {
		c.Writer = nil
	}
	c.params = c.params[:0]
	c.store = nil
}

// AddParam records a route parameter. Routers call it while matching.
func (c *Context) AddParam(key, value string) {
	c.params = append(c.params, param{key: key, value: value})
}

// PathParam returns the value of a route parameter, or "" when absent.
func (c *Context) PathParam(key string) string {
	for i := range c.params {
		if c.params[i].key == key {
			return c.params[i].value
		}
	}
	return ""
}

func (c *Context) QueryParam(key string) string {
	return c.Request.URL.Query().Get(key)
}

func (c *Context) GetHeader(key string) string {
	return c.Request.Header.Get(key)
}

func (c *Context) SetHeader(key, value string) {
	c.Writer.Header().Set(key, value)
}

func (c *Context) GetCookie(name string) (*http.Cookie, error) {
	return c.Request.Cookie(name)
}

// Set stores a request-scoped value.
func (c *Context) Set(key string, value interface{}) {
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = value
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) interface{} {
	return c.store[key]
}

// Status returns the status code written so far, or 0 if nothing was written.
func (c *Context) Status() int {
	return c.response.status
}

// Written reports whether the response headers were sent.
func (c *Context) Written() bool {
	return c.response.status != 0
}

func (c *Context) String(code int, s string) error {
	return c.Blob(code, "text/plain; charset=utf-8", []byte(s))
}

func (c *Context) HTML(code int, html string) error {
	return c.Blob(code, "text/html; charset=utf-8", []byte(html))
}

func (c *Context) JSON(code int, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(code, "application/json", b)
}

// Blob writes data with the given content type. HEAD requests get headers only.
func (c *Context) Blob(code int, contentType string, data []byte) error {
	c.Writer.Header().Set("Content-Type", contentType)
	c.Writer.WriteHeader(code)
	if c.Request != nil && c.Request.Method == http.MethodHead {
		return nil
	}
	_, err := c.Writer.Write(data)
	return err
}

func (c *Context) NoContent(code int) error {
	c.Writer.WriteHeader(code)
	return nil
}

// Redirect replies with a redirect to url. code must be a 3xx status.
func (c *Context) Redirect(code int, url string) error {
	if code < http.StatusMultipleChoices || code > http.StatusPermanentRedirect {
		return NewHTTPError(http.StatusInternalServerError, "invalid redirect status")
	}
	http.Redirect(c.Writer, c.Request, url, code)
	return nil
}

// responseWriter records the status and size of the response.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) reset(rw http.ResponseWriter) {
	w.ResponseWriter = rw
	w.status = 0
	w.size = 0
}

func (w *responseWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
