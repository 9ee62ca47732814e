// Package description loads the static API description document that the
// documentation UI renders.
//
// Only the header of the document (version marker, info block, servers and
// the number of paths) is given a static shape. Everything else is passed
// through to the UI verbatim.
package description

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultTitle is used when the document has no info.title.
const DefaultTitle = "API Documentation"

// Format is the serialization of the description file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file name. Anything that is not .json is
// parsed as YAML, which also accepts JSON.
func FormatOf(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

type Info struct {
	Title       string
	Description string
	Version     string
}

type Server struct {
	URL         string
	Description string
}

// Header is the statically typed part of a description document.
type Header struct {
	// Standard is "openapi" or "swagger", StandardVersion its value.
	Standard        string
	StandardVersion string
	Info            Info
	Servers         []Server
	PathCount       int
}

// Document is a loaded description. It is never modified after Load returns.
type Document struct {
	Path     string
	Format   Format
	Raw      []byte
	JSON     []byte
	Header   Header
	Digest   string
	LoadedAt time.Time
}

// Load reads and parses the description file at path.
func Load(path string) (*Document, error) {
	const op = "description.load"

	data, err := os.ReadFile(path)
	if err != nil {
		kind := KindUnreadable
		if errors.Is(err, fs.ErrNotExist) {
			kind = KindNotFound
		}
		return nil, &Error{Op: op, Kind: kind, Path: path, Err: err}
	}

	doc, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse builds a Document from the bytes of a description file. name is used
// for format detection and error messages.
func Parse(name string, data []byte) (*Document, error) {
	const op = "description.parse"
	malformed := func(err error) error {
		return &Error{Op: op, Kind: KindMalformed, Path: name, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed(errors.New("document is empty"))
	}

	format := FormatOf(name)
	if format == FormatJSON && !json.Valid(data) {
		return nil, malformed(errors.New("invalid JSON"))
	}

	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, malformed(err)
	}
	fields, ok := root.(map[string]any)
	if !ok {
		return nil, malformed(fmt.Errorf("top level must be a mapping, got %T", root))
	}

	header, err := readHeader(fields)
	if err != nil {
		return nil, malformed(err)
	}

	asJSON := data
	if format == FormatYAML {
		asJSON, err = yaml.YAMLToJSON(data)
		if err != nil {
			return nil, malformed(err)
		}
	}

	sum := sha256.Sum256(data)
	return &Document{
		Path:     name,
		Format:   format,
		Raw:      data,
		JSON:     asJSON,
		Header:   header,
		Digest:   hex.EncodeToString(sum[:16]),
		LoadedAt: time.Now(),
	}, nil
}

// Title returns info.title, or DefaultTitle when the document has none.
func (d *Document) Title() string {
	if d.Header.Info.Title != "" {
		return d.Header.Info.Title
	}
	return DefaultTitle
}

// YAML returns the document as YAML.
func (d *Document) YAML() ([]byte, error) {
	if d.Format == FormatYAML {
		return d.Raw, nil
	}
	out, err := yaml.JSONToYAML(d.JSON)
	if err != nil {
		return nil, fmt.Errorf("converting %s to yaml: %w", d.Path, err)
	}
	return out, nil
}

func readHeader(fields map[string]any) (Header, error) {
	var h Header
	for _, key := range []string{"openapi", "swagger"} {
		if v, ok := fields[key]; ok && v != nil {
			h.Standard = key
			h.StandardVersion = scalar(v)
			break
		}
	}
	if h.Standard == "" {
		return h, errors.New(`missing "openapi" or "swagger" version field`)
	}

	if info, ok := fields["info"].(map[string]any); ok {
		h.Info = Info{
			Title:       scalar(info["title"]),
			Description: scalar(info["description"]),
			Version:     scalar(info["version"]),
		}
	}

	if servers, ok := fields["servers"].([]any); ok {
		for _, s := range servers {
			m, ok := s.(map[string]any)
			if !ok {
				continue
			}
			h.Servers = append(h.Servers, Server{
				URL:         scalar(m["url"]),
				Description: scalar(m["description"]),
			})
		}
	}

	if paths, ok := fields["paths"].(map[string]any); ok {
		h.PathCount = len(paths)
	}
	return h, nil
}

// scalar renders a YAML scalar as text. Unquoted versions such as 1.0 decode
// as numbers.
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
