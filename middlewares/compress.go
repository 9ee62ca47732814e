package middlewares

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/buildwithgo/docserve"
)

// gzipResponseWriter starts compressing on the first body write, so responses
// without a body (redirects, 304s, HEAD) pass through untouched.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	wroteHeader bool
	compress    bool
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.ResponseWriter.Header()
	w.compress = bodyAllowed(code) && h.Get("Content-Encoding") == "" && h.Get("Content-Range") == ""
	if w.compress {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length") // Content-length is no longer valid after compression
	}
	h.Add("Vary", "Accept-Encoding")
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.ResponseWriter.Header().Get("Content-Type") == "" {
			w.ResponseWriter.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	if !w.compress {
		return w.ResponseWriter.Write(b)
	}
	if w.gz == nil {
		w.gz = gzip.NewWriter(w.ResponseWriter)
	}
	return w.gz.Write(b)
}

func (w *gzipResponseWriter) Flush() {
	if w.gz != nil {
		w.gz.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *gzipResponseWriter) close() error {
	if w.gz == nil {
		return nil
	}
	return w.gz.Close()
}

func bodyAllowed(code int) bool {
	return code >= http.StatusOK && code != http.StatusNoContent && code != http.StatusNotModified
}

// Compress returns a middleware that compresses HTTP responses using Gzip.
func Compress() docserve.Middleware {
	return func(next docserve.Handler) docserve.Handler {
		return func(c *docserve.Context) error {
			if c.Request.Method == http.MethodHead ||
				!strings.Contains(c.Request.Header.Get("Accept-Encoding"), "gzip") {
				return next(c)
			}

			gzw := &gzipResponseWriter{ResponseWriter: c.Writer}

			// Temporarily replace writer
			originalWriter := c.Writer
			c.Writer = gzw

			err := next(c)

			c.Writer = originalWriter
			if cerr := gzw.close(); err == nil {
				err = cerr
			}
			return err
		}
	}
}
