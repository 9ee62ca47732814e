package docserve

import (
	"io/fs"
	"net/http"
	"strings"
)

// Group registers routes under a common prefix. Middlewares added with Use
// apply to every route registered on the group afterwards.
type Group struct {
	prefix      string
	router      Router
	middlewares []Middleware
}

func NewGroup(prefix string, router Router) *Group {
	return &Group{
		prefix:      prefix,
		router:      router,
		middlewares: make([]Middleware, 0),
	}
}

// Prefix returns the full path prefix of the group.
func (g *Group) Prefix() string {
	return g.prefix
}

func (g *Group) Use(middleware Middleware) {
	g.middlewares = append(g.middlewares, middleware)
}

func (g *Group) Add(method, path string, handler Handler, middlewares ...Middleware) error {
	var fullPath strings.Builder
	fullPath.Grow(len(g.prefix) + len(path)) // Pre-allocate capacity
	fullPath.WriteString(g.prefix)
	fullPath.WriteString(path)

	if len(g.middlewares) > 0 {
		combined := make([]Middleware, 0, len(g.middlewares)+len(middlewares))
		combined = append(combined, g.middlewares...)
		combined = append(combined, middlewares...)
		middlewares = combined
	}
	return g.router.Add(method, fullPath.String(), handler, middlewares...)
}

func (g *Group) GET(path string, handler Handler, middlewares ...Middleware) error {
	return g.Add(http.MethodGet, path, handler, middlewares...)
}

func (g *Group) HEAD(path string, handler Handler, middlewares ...Middleware) error {
	return g.Add(http.MethodHead, path, handler, middlewares...)
}

// Handle registers handler for both GET and HEAD.
func (g *Group) Handle(path string, handler Handler, middlewares ...Middleware) error {
	if err := g.GET(path, handler, middlewares...); err != nil {
		return err
	}
	return g.HEAD(path, handler, middlewares...)
}

// Mount serves h for path and everything below it, for GET and HEAD.
func (g *Group) Mount(path string, h http.Handler, middlewares ...Middleware) error {
	return g.mount(path, WrapHandler(h), middlewares...)
}

// StaticFS serves fsys under pathPrefix relative to the group.
func (g *Group) StaticFS(pathPrefix string, fsys fs.FS, middlewares ...Middleware) error {
	handler := StaticHandler(StaticConfig{
		Root:   fsys,
		Prefix: g.prefix + pathPrefix,
	})
	return g.mount(pathPrefix, handler, middlewares...)
}

func (g *Group) mount(path string, handler Handler, middlewares ...Middleware) error {
	path = strings.TrimRight(path, "/")
	if err := g.Handle(path, handler, middlewares...); err != nil {
		return err
	}
	return g.Handle(path+"/*filepath", handler, middlewares...)
}

// WrapHandler adapts a net/http handler to a framework Handler.
func WrapHandler(h http.Handler) Handler {
	return func(c *Context) error {
		h.ServeHTTP(c.Writer, c.Request)
		return nil
	}
}
