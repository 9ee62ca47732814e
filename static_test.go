package docserve_test

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/buildwithgo/docserve"
	"github.com/buildwithgo/docserve/routers"
)

func TestStaticFS(t *testing.T) {
	app := docserve.New(docserve.WithRouter(routers.NewTrieRouter()))

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("Hello Local"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>index</h1>"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := app.StaticFS("/files", os.DirFS(dir)); err != nil {
		t.Fatal(err)
	}

	t.Run("ServeFile", func(t *testing.T) {
		w := app.Test(httptest.NewRequest("GET", "/files/hello.txt", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if w.Body.String() != "Hello Local" {
			t.Errorf("Expected 'Hello Local', got '%s'", w.Body.String())
		}
	})

	t.Run("Index", func(t *testing.T) {
		w := app.Test(httptest.NewRequest("GET", "/files/", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if w.Body.String() != "<h1>index</h1>" {
			t.Errorf("Expected index page, got '%s'", w.Body.String())
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		w := app.Test(httptest.NewRequest("GET", "/files/missing.txt", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("Traversal", func(t *testing.T) {
		w := app.Test(httptest.NewRequest("GET", "/files/../../etc/passwd", nil))

		if w.Code == http.StatusOK {
			t.Errorf("Expected traversal to be rejected, got 200 %q", w.Body.String())
		}
	})

	mockFS := fstest.MapFS{
		"dist/hello.txt":     &fstest.MapFile{Data: []byte("Hello Embed")},
		"dist/test_file.txt": &fstest.MapFile{Data: []byte("Content of test file")},
	}

	subFS, _ := fs.Sub(mockFS, "dist")
	if err := app.StaticFS("/embed", subFS); err != nil {
		t.Fatal(err)
	}

	t.Run("ServeEmbed", func(t *testing.T) {
		w := app.Test(httptest.NewRequest("GET", "/embed/hello.txt", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if w.Body.String() != "Hello Embed" {
			t.Errorf("Expected 'Hello Embed', got '%s'", w.Body.String())
		}

		w2 := app.Test(httptest.NewRequest("GET", "/embed/test_file.txt", nil))
		if w2.Code != http.StatusOK {
			t.Errorf("Expected 200 for test_file.txt, got %d", w2.Code)
		}
	})
}
