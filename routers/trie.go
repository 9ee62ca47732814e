// Package routers provides Router implementations for the docserve App.
package routers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"

	"github.com/buildwithgo/docserve"
)

var errNoRoute = errors.New("route not found")

type node struct {
	children map[string]*node

	paramNode *node
	paramName string

	catchAllNode *node
	catchAllName string

	docserve.Route
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// TrieRouter is a per-method segment trie. Segments are static, :param or
// {param}, or a trailing *catchall. Lookup prefers static over param over
// catch-all at every level.
type TrieRouter struct {
	root              map[string]*node // method -> root node
	globalMiddlewares []docserve.Middleware
}

func NewTrieRouter() *TrieRouter {
	return &TrieRouter{
		root: make(map[string]*node),
	}
}

// Use adds a middleware to every route registered after the call.
func (r *TrieRouter) Use(middleware docserve.Middleware) {
	r.globalMiddlewares = append(r.globalMiddlewares, middleware)
}

func (r *TrieRouter) Add(method, path string, handler docserve.Handler, middlewares ...docserve.Middleware) error {
	if len(r.globalMiddlewares) > 0 {
		combined := make([]docserve.Middleware, 0, len(r.globalMiddlewares)+len(middlewares))
		combined = append(combined, r.globalMiddlewares...)
		middlewares = append(combined, middlewares...)
	}

	if path == "" || path[0] != '/' {
		path = "/" + path
	}

	n, ok := r.root[method]
	if !ok {
		n = newNode()
		r.root[method] = n
	}

	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		next, err := n.child(part)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		n = next
	}

	n.Handler = docserve.Compile(handler, middlewares...)
	n.Middlewares = middlewares
	n.Path = path
	n.Method = method
	return nil
}

// child returns the node for one pattern segment, creating it if needed.
func (n *node) child(part string) (*node, error) {
	switch {
	case part[0] == ':' || (len(part) > 2 && part[0] == '{' && part[len(part)-1] == '}'):
		name := strings.TrimSuffix(strings.TrimLeft(part, ":{"), "}")
		if n.paramNode == nil {
			n.paramNode = newNode()
			n.paramName = name
		}
		if n.paramName != name {
			return nil, fmt.Errorf("param name conflict: %s vs %s", n.paramName, name)
		}
		return n.paramNode, nil

	case part[0] == '*':
		name := part[1:]
		if n.catchAllNode == nil {
			n.catchAllNode = newNode()
			n.catchAllName = name
		}
		if n.catchAllName != name {
			return nil, fmt.Errorf("wildcard name conflict: %s vs %s", n.catchAllName, name)
		}
		return n.catchAllNode, nil

	default:
		c, ok := n.children[part]
		if !ok {
			c = newNode()
			n.children[part] = c
		}
		return c, nil
	}
}

// Find walks path without allocating; parameters go to ctx when non-nil.
// A trailing slash is ignored.
func (r *TrieRouter) Find(method, path string, ctx *docserve.Context) (*docserve.Route, error) {
	n, ok := r.root[method]
	if !ok {
		return nil, errNoRoute
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	for {
		if rest == "" {
			if n.Handler != nil {
				return &n.Route, nil
			}
			// A catch-all also matches an empty remainder.
			if n.catchAllNode != nil && n.catchAllNode.Handler != nil {
				if ctx != nil {
					ctx.AddParam(n.catchAllName, "")
				}
				return &n.catchAllNode.Route, nil
			}
			return nil, errNoRoute
		}

		part, tail, _ := strings.Cut(rest, "/")
		if part == "" {
			rest = tail
			continue
		}

		if child, found := n.children[part]; found {
			n, rest = child, tail
			continue
		}

		if n.paramNode != nil {
			if ctx != nil {
				ctx.AddParam(n.paramName, part)
			}
			n, rest = n.paramNode, tail
			continue
		}

		if n.catchAllNode != nil && n.catchAllNode.Handler != nil {
			if ctx != nil {
				ctx.AddParam(n.catchAllName, rest)
			}
			return &n.catchAllNode.Route, nil
		}
		return nil, errNoRoute
	}
}

func (r *TrieRouter) StaticFS(pathPrefix string, fsys fs.FS, middlewares ...docserve.Middleware) error {
	return r.Group("").StaticFS(pathPrefix, fsys, middlewares...)
}

func (r *TrieRouter) GET(path string, handler docserve.Handler, middlewares ...docserve.Middleware) error {
	return r.Add(http.MethodGet, path, handler, middlewares...)
}

func (r *TrieRouter) HEAD(path string, handler docserve.Handler, middlewares ...docserve.Middleware) error {
	return r.Add(http.MethodHead, path, handler, middlewares...)
}

func (r *TrieRouter) Group(prefix string) *docserve.Group {
	return docserve.NewGroup(prefix, r)
}

// Routes returns every registered route, ordered by method then path.
func (r *TrieRouter) Routes() []docserve.Route {
	var routes []docserve.Route
	for _, root := range r.root {
		collect(root, &routes)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Method != routes[j].Method {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes
}

func collect(n *node, routes *[]docserve.Route) {
	if n == nil {
		return
	}
	if n.Handler != nil {
		*routes = append(*routes, n.Route)
	}
	for _, child := range n.children {
		collect(child, routes)
	}
	collect(n.paramNode, routes)
	collect(n.catchAllNode, routes)
}
