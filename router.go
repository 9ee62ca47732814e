package docserve

import "io/fs"

// Route is a registered handler. Handler already has Middlewares compiled in.
type Route struct {
	Method      string
	Path        string
	Handler     Handler
	Middlewares []Middleware
}

// Router matches requests to routes. Find records path parameters on ctx when
// ctx is non-nil.
type Router interface {
	Add(method, path string, handler Handler, middlewares ...Middleware) error
	GET(path string, handler Handler, middlewares ...Middleware) error
	HEAD(path string, handler Handler, middlewares ...Middleware) error
	Use(middleware Middleware)
	Group(prefix string) *Group
	Find(method, path string, ctx *Context) (*Route, error)
	StaticFS(pathPrefix string, fsys fs.FS, middlewares ...Middleware) error
}

// WithRouter sets the router used by the App. It is required.
func WithRouter(router Router) AppOption {
	return func(app *App) {
		app.router = router
	}
}
