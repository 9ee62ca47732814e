// Package server composes the documentation server: it installs the middleware
// stack, redirects / to the documentation path and mounts the UI there.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/buildwithgo/docserve"
	"github.com/buildwithgo/docserve/config"
	"github.com/buildwithgo/docserve/description"
	"github.com/buildwithgo/docserve/docsui"
	"github.com/buildwithgo/docserve/middlewares"
	"github.com/buildwithgo/docserve/routers"
)

// Server is the documentation server for one loaded description.
type Server struct {
	cfg    config.Config
	doc    *description.Document
	log    zerolog.Logger
	app    *docserve.App
	router *routers.TrieRouter
	ui     *docsui.UI
	jwtKey middlewares.JWTOption
}

// TokenCookieName holds a bearer token accepted from the ?token= query
// parameter, so the assets and description fetched by the page authenticate.
const TokenCookieName = "docserve_token"

// Open loads the description file named by cfg and builds the server on it.
// A missing or malformed description is returned as a *description.Error.
func Open(cfg config.Config, log zerolog.Logger) (*Server, error) {
	doc, err := description.Load(cfg.Description)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", doc.Path).
		Str("format", string(doc.Format)).
		Str(doc.Header.Standard, doc.Header.StandardVersion).
		Int("paths", doc.Header.PathCount).
		Msg("Description loaded")

	return New(cfg, doc, log)
}

// New builds the server without binding a socket.
func New(cfg config.Config, doc *description.Document, log zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	opts := docsui.Options{
		Renderer: cfg.Renderer,
		Title:    cfg.Title,
	}
	if cfg.AssetsDir != "" {
		opts.Assets = os.DirFS(cfg.AssetsDir)
	}
	ui, err := docsui.New(doc, opts)
	if err != nil {
		return nil, err
	}
	jwtKey, err := jwtOption(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		doc:    doc,
		log:    log,
		router: routers.NewTrieRouter(),
		ui:     ui,
		jwtKey: jwtKey,
	}
	s.app = docserve.New(
		docserve.WithRouter(s.router),
		docserve.WithShutdownTimeout(cfg.ShutdownTimeout),
		docserve.WithMaxConnections(cfg.MaxConnections),
		docserve.WithOnListen(s.announce),
	)

	s.app.Use(docserve.Recovery(docserve.WithRecoveryLogger(log)))
	s.app.Use(middlewares.RequestID())
	s.app.Use(middlewares.Logger(log))
	s.app.Use(middlewares.Secure())
	if len(cfg.CORSOrigins) > 0 {
		cors := middlewares.DefaultCORSConfig()
		cors.AllowOrigins = cfg.CORSOrigins
		s.app.Use(middlewares.CORS(cors))
	}
	if cfg.Compress {
		s.app.Use(middlewares.Compress())
	}

	if err := s.routes(); err != nil {
		return nil, err
	}

	for _, r := range s.router.Routes() {
		log.Debug().Str("method", r.Method).Str("path", r.Path).Msg("Route registered")
	}
	return s, nil
}

func (s *Server) routes() error {
	root := s.app.Group("")
	if err := root.Handle("/", s.redirectToDocs); err != nil {
		return err
	}

	docs := s.app.Group(s.cfg.DocsPath)
	if s.cfg.BasicAuthUser != "" {
		docs.Use(middlewares.BasicAuthWithConfig(middlewares.BasicAuthConfig{
			Realm:     "docs",
			Validator: s.checkBasicAuth,
		}))
	}
	if s.jwtKey != nil {
		docs.Use(middlewares.JWT(
			s.jwtKey,
			middlewares.WithTokenLookup("query:token,header:Authorization,cookie:"+TokenCookieName),
			middlewares.WithTokenCookie(TokenCookieName, s.cfg.DocsPath),
		))
	}
	return s.ui.Mount(docs)
}

// jwtOption picks the token verification key from the configuration. It
// returns nil when the docs are not token protected.
func jwtOption(cfg config.Config) (middlewares.JWTOption, error) {
	switch {
	case cfg.JWTSecret != "":
		return middlewares.WithSecret(cfg.JWTSecret), nil
	case cfg.JWTPublicKey != "":
		pem, err := os.ReadFile(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("reading jwt public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parsing jwt public key %s: %w", cfg.JWTPublicKey, err)
		}
		return middlewares.WithRSAPublicKey(key), nil
	}
	return nil, nil
}

func (s *Server) redirectToDocs(c *docserve.Context) error {
	return c.Redirect(http.StatusFound, s.cfg.DocsPath)
}

func (s *Server) checkBasicAuth(user, password string, _ *docserve.Context) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.BasicAuthUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.BasicAuthPassword)) == 1
	return userOK && passOK, nil
}

// Handler exposes the request handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run binds the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.app.Start(ctx, s.cfg.Address())
}

// Serve is Run on an already bound listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	return s.app.Serve(ctx, ln)
}

func (s *Server) announce(addr net.Addr) {
	url := s.cfg.DocsURL()
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.Port != s.cfg.Port {
		cfg := s.cfg
		cfg.Port = tcp.Port
		url = cfg.DocsURL()
	}

	s.log.Info().
		Str("addr", addr.String()).
		Str("description", s.doc.Path).
		Str("title", s.ui.Title()).
		Str("renderer", s.ui.Renderer()).
		Msgf("%s is available at %s", s.ui.Name(), url)
}
