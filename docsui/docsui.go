// Package docsui serves an interactive documentation UI for a loaded API
// description, together with the description itself.
package docsui

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	v3 "github.com/swaggest/swgui/v3"

	"github.com/buildwithgo/docserve"
	"github.com/buildwithgo/docserve/description"
	"github.com/buildwithgo/docserve/routers"
)

// Renderer names.
const (
	RendererSwaggerUI = "swagger-ui"
	RendererScalar    = "scalar"
)

// Paths below the mount point.
const (
	JSONPath   = "/swagger.json"
	YAMLPath   = "/swagger.yaml"
	AssetsPath = "/assets"
)

// Renderers lists the supported renderer names.
func Renderers() []string {
	return []string{RendererSwaggerUI, RendererScalar}
}

type Options struct {
	// Renderer selects the UI. Defaults to RendererSwaggerUI.
	Renderer string
	// Title overrides the document's info.title.
	Title string
	// Assets, when set, is served under AssetsPath.
	Assets fs.FS
}

// UI serves one description document. It holds no per-request state.
type UI struct {
	doc  *description.Document
	opts Options
	yaml []byte
}

// New validates opts and prepares the UI for doc.
func New(doc *description.Document, opts Options) (*UI, error) {
	if doc == nil {
		return nil, fmt.Errorf("docsui: nil description")
	}
	if opts.Renderer == "" {
		opts.Renderer = RendererSwaggerUI
	}
	if !knownRenderer(opts.Renderer) {
		return nil, fmt.Errorf("docsui: unknown renderer %q (want one of %s)",
			opts.Renderer, strings.Join(Renderers(), ", "))
	}
	if opts.Title == "" {
		opts.Title = doc.Title()
	}

	y, err := doc.YAML()
	if err != nil {
		return nil, err
	}

	return &UI{doc: doc, opts: opts, yaml: y}, nil
}

// Renderer is the resolved renderer name.
func (u *UI) Renderer() string {
	return u.opts.Renderer
}

// Name is the human readable name of the renderer, as used in log lines.
func (u *UI) Name() string {
	if u.opts.Renderer == RendererScalar {
		return "Scalar API Reference"
	}
	return "Swagger UI"
}

// Title is the page title shown by the UI.
func (u *UI) Title() string {
	return u.opts.Title
}

// Mount registers the UI on g. The group prefix is the documentation path.
func (u *UI) Mount(g *docserve.Group) error {
	base := strings.TrimRight(g.Prefix(), "/")

	page, err := u.page(base)
	if err != nil {
		return err
	}

	if err := g.Handle(JSONPath, u.serveJSON); err != nil {
		return err
	}
	if err := g.Handle(YAMLPath, u.serveYAML); err != nil {
		return err
	}
	if u.opts.Assets != nil {
		if err := g.StaticFS(AssetsPath, u.opts.Assets); err != nil {
			return err
		}
	}
	return g.Mount("", page)
}

// Handler returns a standalone handler serving the UI under basePath.
func (u *UI) Handler(basePath string) (http.Handler, error) {
	app := docserve.New(docserve.WithRouter(routers.NewTrieRouter()))
	if err := u.Mount(app.Group(basePath)); err != nil {
		return nil, err
	}
	return app, nil
}

func (u *UI) page(base string) (http.Handler, error) {
	specURL := base + JSONPath

	switch u.opts.Renderer {
	case RendererScalar:
		html, err := ScalarHTML(u.opts.Title, specURL)
		if err != nil {
			return nil, fmt.Errorf("docsui: rendering page: %w", err)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if r.Method == http.MethodHead {
				return
			}
			_, _ = w.Write([]byte(html))
		}), nil
	default:
		return v3.NewHandler(u.opts.Title, specURL, base+"/"), nil
	}
}

func (u *UI) serveJSON(c *docserve.Context) error {
	return u.serveDocument(c, "application/json", "json", u.doc.JSON)
}

func (u *UI) serveYAML(c *docserve.Context) error {
	return u.serveDocument(c, "application/yaml", "yaml", u.yaml)
}

func (u *UI) serveDocument(c *docserve.Context, contentType, variant string, body []byte) error {
	etag := `"` + u.doc.Digest + "-" + variant + `"`
	c.SetHeader("Cache-Control", "no-cache")
	c.SetHeader("ETag", etag)

	if etagMatch(c.GetHeader("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, contentType, body)
}

func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func knownRenderer(name string) bool {
	for _, r := range Renderers() {
		if r == name {
			return true
		}
	}
	return false
}
