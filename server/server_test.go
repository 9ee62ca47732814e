package server_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildwithgo/docserve/config"
	"github.com/buildwithgo/docserve/description"
	"github.com/buildwithgo/docserve/server"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Description = filepath.Join("testdata", "swagger.yaml")
	return cfg
}

func newServer(t *testing.T, cfg config.Config) *server.Server {
	t.Helper()
	srv, err := server.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	return srv
}

func do(h http.Handler, method, path string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRootRedirect(t *testing.T) {
	for _, docsPath := range []string{"/api-docs", "/reference/v1"} {
		t.Run(docsPath, func(t *testing.T) {
			cfg := testConfig()
			cfg.DocsPath = docsPath
			h := newServer(t, cfg).Handler()

			for i := 0; i < 3; i++ {
				w := do(h, http.MethodGet, "/")
				require.Equal(t, http.StatusFound, w.Code)
				assert.Equal(t, docsPath, w.Header().Get("Location"))
			}

			w := do(h, http.MethodHead, "/")
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, docsPath, w.Header().Get("Location"))
		})
	}
}

func TestDocsPage(t *testing.T) {
	h := newServer(t, testConfig()).Handler()

	w := do(h, http.MethodGet, "/api-docs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.NotEmpty(t, w.Body.String())
	assert.Contains(t, w.Body.String(), "Minimal API")

	w = do(h, http.MethodGet, "/api-docs/swagger.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Minimal API"`)

	w = do(h, http.MethodGet, "/api-docs/swagger.yaml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "title: Minimal API")
}

func TestAmbientHeaders(t *testing.T) {
	h := newServer(t, testConfig()).Handler()

	w := do(h, http.MethodGet, "/api-docs")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))

	w = do(h, http.MethodGet, "/", func(r *http.Request) { r.Header.Set("X-Request-ID", "abc") })
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}

func TestUnknownPath(t *testing.T) {
	h := newServer(t, testConfig()).Handler()

	w := do(h, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(h, http.MethodPost, "/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompression(t *testing.T) {
	h := newServer(t, testConfig()).Handler()

	w := do(h, http.MethodGet, "/api-docs/swagger.json", func(r *http.Request) {
		r.Header.Set("Accept-Encoding", "gzip")
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"openapi"`)

	w = do(h, http.MethodGet, "/", func(r *http.Request) {
		r.Header.Set("Accept-Encoding", "gzip")
	})
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = []string{"https://editor.example"}
	h := newServer(t, cfg).Handler()

	w := do(h, http.MethodGet, "/api-docs/swagger.json", func(r *http.Request) {
		r.Header.Set("Origin", "https://editor.example")
	})
	assert.Equal(t, "https://editor.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(h, http.MethodOptions, "/api-docs/swagger.json", func(r *http.Request) {
		r.Header.Set("Origin", "https://editor.example")
		r.Header.Set("Access-Control-Request-Method", "GET")
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(h, http.MethodGet, "/api-docs/swagger.json", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example")
	})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBasicAuthProtectsDocsOnly(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuthUser, cfg.BasicAuthPassword = "admin", "secret"
	h := newServer(t, cfg).Handler()

	w := do(h, http.MethodGet, "/")
	assert.Equal(t, http.StatusFound, w.Code)

	w = do(h, http.MethodGet, "/api-docs")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	w = do(h, http.MethodGet, "/api-docs", func(r *http.Request) { r.SetBasicAuth("admin", "wrong") })
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/api-docs", func(r *http.Request) { r.SetBasicAuth("admin", "secret") })
	assert.Equal(t, http.StatusOK, w.Code)
}

func signToken(t *testing.T, method jwt.SigningMethod, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "reader",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTProtectsDocs(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	h := newServer(t, cfg).Handler()
	token := signToken(t, jwt.SigningMethodHS256, []byte("test-secret"))

	w := do(h, http.MethodGet, "/api-docs/swagger.json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/api-docs/swagger.json", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = do(h, http.MethodGet, "/")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestJWTQueryTokenCarriesToPageRequests(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	h := newServer(t, cfg).Handler()
	token := signToken(t, jwt.SigningMethodHS256, []byte("test-secret"))

	w := do(h, http.MethodGet, "/api-docs?token="+token)
	require.Equal(t, http.StatusOK, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == server.TokenCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "page load should set the token cookie")
	assert.Equal(t, "/api-docs", cookie.Path)
	assert.True(t, cookie.HttpOnly)

	withCookie := func(r *http.Request) { r.AddCookie(cookie) }
	for _, path := range []string{"/api-docs/swagger.json", "/api-docs/swagger-ui-bundle.js", "/api-docs/swagger.yaml"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, do(h, http.MethodGet, path, withCookie).Code)
			assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, path).Code)
		})
	}

	forged := &http.Cookie{Name: server.TokenCookieName, Value: "forged"}
	w = do(h, http.MethodGet, "/api-docs/swagger.json", func(r *http.Request) { r.AddCookie(forged) })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func writePublicKey(t *testing.T, key *rsa.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(key)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "jwt.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))
	return path
}

func TestJWTPublicKeyProtectsDocs(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.JWTPublicKey = writePublicKey(t, &key.PublicKey)
	h := newServer(t, cfg).Handler()

	w := do(h, http.MethodGet, "/api-docs/swagger.json", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodRS256, key))
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodGet, "/api-docs/swagger.json", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte("test-secret")))
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpenRejectsBadPublicKey(t *testing.T) {
	cfg := testConfig()
	cfg.JWTPublicKey = filepath.Join(t.TempDir(), "missing.pem")
	_, err := server.Open(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt public key")

	cfg.JWTPublicKey = filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(cfg.JWTPublicKey, []byte("not a key"), 0o600))
	_, err = server.Open(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing jwt public key")
}

func TestOpenFailsWithoutDescription(t *testing.T) {
	cfg := testConfig()
	cfg.Description = filepath.Join(t.TempDir(), "swagger.yaml")

	buf := &bytes.Buffer{}
	srv, err := server.Open(cfg, zerolog.New(buf))
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.True(t, errors.Is(err, description.ErrNotFound))
	assert.NotContains(t, buf.String(), "available at")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Renderer = "unknown"
	_, err := server.Open(cfg, zerolog.Nop())
	assert.Error(t, err)
}

type syncBuffer struct {
	ch chan string
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.ch <- string(p)
	return len(p), nil
}

func TestEndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	logs := &syncBuffer{ch: make(chan string, 256)}
	srv := newServerWithLog(t, testConfig(), zerolog.New(logs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	waitForReadiness(t, logs, "Swagger UI is available at")

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get("http://" + addr + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/api-docs", resp.Header.Get("Location"))

	resp, err = client.Get("http://" + addr + "/api-docs")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.NotEmpty(t, body)

	client.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	again, err := net.Listen("tcp", addr)
	require.NoError(t, err, "port should be released after shutdown")
	again.Close()
}

func TestReadinessNamesRenderer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Renderer = "scalar"
	logs := &syncBuffer{ch: make(chan string, 256)}
	srv := newServerWithLog(t, cfg, zerolog.New(logs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	line := waitForReadiness(t, logs, "Scalar API Reference is available at")
	assert.NotContains(t, line, "Swagger UI")
	assert.Contains(t, line, `"renderer":"scalar"`)

	cancel()
	require.NoError(t, <-done)
}

func waitForReadiness(t *testing.T, logs *syncBuffer, message string) string {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case line := <-logs.ch:
			if strings.Contains(line, message) {
				assert.Contains(t, line, "http://localhost:")
				assert.Contains(t, line, "/api-docs")
				return line
			}
		case <-timeout:
			t.Fatal("no readiness log line")
		}
	}
}

func newServerWithLog(t *testing.T, cfg config.Config, log zerolog.Logger) *server.Server {
	t.Helper()
	srv, err := server.Open(cfg, log)
	require.NoError(t, err)
	return srv
}
