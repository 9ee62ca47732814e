// Package docserve implements a small HTTP router framework and the server that
// hosts interactive API documentation on top of it.
package docserve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"golang.org/x/net/netutil"
)

// DefaultShutdownTimeout bounds how long Serve waits for in-flight requests
// once its context is cancelled.
const DefaultShutdownTimeout = 10 * time.Second

// Handler is a function that handles an HTTP request.
// It returns an error which can be handled by middlewares or the framework.
type Handler func(*Context) error

// Middleware is a function that wraps a Handler to provide additional functionality.
type Middleware func(next Handler) Handler

// App is the main entry point for the framework.
// It holds the router, global middlewares, and a context pool.
type App struct {
	router       Router
	middlewares  []Middleware
	pool         *sync.Pool
	errorHandler ErrorHandler

	shutdownTimeout time.Duration
	maxConnections  int
	onListen        func(net.Addr)
}

// Use adds a global middleware to the application.
// Global middlewares are applied to all routes in the order they are added.
func (a *App) Use(middleware Middleware) {
	a.middlewares = append(a.middlewares, middleware)
}

// GET registers a new GET route with a handler and optional route-specific middlewares.
func (a *App) GET(path string, handler Handler, middlewares ...Middleware) error {
	return a.router.Add(http.MethodGet, path, handler, middlewares...)
}

func (a *App) HEAD(path string, handler Handler, middlewares ...Middleware) error {
	return a.router.Add(http.MethodHead, path, handler, middlewares...)
}

// Add registers a new route with the specified method, path, handler, and middlewares.
func (a *App) Add(method, path string, handler Handler, middlewares ...Middleware) error {
	return a.router.Add(method, path, handler, middlewares...)
}

func (a *App) Group(prefix string) *Group {
	return a.router.Group(prefix)
}

func (a *App) StaticFS(pathPrefix string, fsys fs.FS) error {
	return a.Group("").StaticFS(pathPrefix, fsys)
}

// AppOption defines a function to configure the App during initialization.
type AppOption func(*App)

// WithErrorHandler replaces the handler that turns returned errors into responses.
func WithErrorHandler(h ErrorHandler) AppOption {
	return func(app *App) {
		app.errorHandler = h
	}
}

// WithShutdownTimeout sets the graceful shutdown deadline used by Serve.
func WithShutdownTimeout(d time.Duration) AppOption {
	return func(app *App) {
		app.shutdownTimeout = d
	}
}

// WithMaxConnections caps the number of simultaneously accepted connections.
// Zero means unlimited.
func WithMaxConnections(n int) AppOption {
	return func(app *App) {
		app.maxConnections = n
	}
}

// WithOnListen registers a callback invoked once the listener is bound.
func WithOnListen(fn func(net.Addr)) AppOption {
	return func(app *App) {
		app.onListen = fn
	}
}

// New creates a new App with optional configuration.
// A router must be supplied with WithRouter.
func New(options ...AppOption) *App {
	app := &App{
		middlewares:     make([]Middleware, 0),
		errorHandler:    DefaultErrorHandler,
		shutdownTimeout: DefaultShutdownTimeout,
		pool: &sync.Pool{
			New: func() interface{} {
				return NewContext(nil, nil)
			},
		},
	}

	for _, option := range options {
		option(app)
	}

	return app
}

// Start binds addr and serves until ctx is cancelled.
func (a *App) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. The listener is closed when Serve returns.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.maxConnections > 0 {
		ln = netutil.LimitListener(ln, a.maxConnections)
	}

	srv := &http.Server{Handler: a}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	if a.onListen != nil {
		a.onListen(ln.Addr())
	}

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		<-serveErr
		return nil
	}
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := a.pool.Get().(*Context)
	ctx.Reset(w, r)
	defer a.pool.Put(ctx)

	// Pass ctx to Find so it can populate params without allocation
	var handler Handler
	route, err := a.router.Find(r.Method, r.URL.Path, ctx)
	if err != nil {
		handler = notFound
	} else {
		// route.Middlewares are already compiled into route.Handler
		handler = route.Handler
	}

	if err := Compile(handler, a.middlewares...)(ctx); err != nil {
		a.handleError(ctx, err)
	}
}

func (a *App) handleError(c *Context, err error) {
	if c.Written() {
		return
	}
	a.errorHandler(c, err, StatusCode(err))
}

// Test dispatches req through the app and returns the recorded response.
func (a *App) Test(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.ServeHTTP(w, req)
	return w
}

func notFound(*Context) error {
	return ErrNotFound
}

func Compile(handler Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
