package docserve

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

// StaticConfig configures StaticHandler.
type StaticConfig struct {
	Root fs.FS

	// Prefix is stripped from the request path when the route has no
	// *filepath parameter.
	Prefix string

	// Index is served for directory requests. Default "index.html".
	Index string

	// MaxAge sets Cache-Control on served files. Zero sends "no-cache".
	MaxAge time.Duration
}

var errFileNotFound = NewHTTPError(http.StatusNotFound, "File Not Found")

// StaticHandler serves files from config.Root. Directories are answered with
// their index file or 404; listings are never generated.
func StaticHandler(config StaticConfig) Handler {
	if config.Index == "" {
		config.Index = "index.html"
	}
	if config.Prefix != "" {
		config.Prefix = "/" + strings.Trim(config.Prefix, "/")
	}

	cacheControl := "no-cache"
	if config.MaxAge > 0 {
		cacheControl = "public, max-age=" + strconv.Itoa(int(config.MaxAge.Seconds()))
	}

	return func(c *Context) error {
		name := c.PathParam("filepath")
		if name == "" && config.Prefix != "" {
			name = strings.TrimPrefix(c.Request.URL.Path, config.Prefix)
		}

		f, stat, err := openStatic(config.Root, cleanName(name), config.Index)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
				return errFileNotFound.SetInternal(err)
			}
			return err
		}
		defer f.Close()

		c.SetHeader("Cache-Control", cacheControl)
		return serveContent(c, stat.Name(), stat.ModTime(), f)
	}
}

// cleanName turns a request path into an fs.FS name. ".." segments cannot
// climb above the root.
func cleanName(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return "."
	}
	return name
}

// openStatic opens name, descending into index for directories.
func openStatic(fsys fs.FS, name, index string) (fs.File, fs.FileInfo, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !stat.IsDir() {
		return f, stat, nil
	}
	f.Close()

	f, err = fsys.Open(path.Join(name, index))
	if err != nil {
		return nil, nil, err
	}
	stat, err = f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, nil, fs.ErrNotExist
	}
	return f, stat, nil
}

func serveContent(c *Context, name string, modtime time.Time, content fs.File) error {
	rs, ok := content.(io.ReadSeeker)
	if !ok {
		return fmt.Errorf("static: %s does not support seeking", name)
	}

	http.ServeContent(c.Writer, c.Request, name, modtime, rs)
	return nil
}
