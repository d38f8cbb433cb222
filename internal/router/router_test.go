package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookdb-api/internal/handler"
	"github.com/noah-isme/bookdb-api/pkg/config"
)

func testConfig(t *testing.T, env string) *config.Config {
	t.Helper()
	return &config.Config{
		Env:     env,
		Storage: config.StorageConfig{UploadDir: t.TempDir(), URLPrefix: "/uploads"},
	}
}

func testHandlers() Handlers {
	return Handlers{
		Documents: handler.NewDocumentHandler(nil, nil, 0),
		Bookmarks: handler.NewBookmarkHandler(nil),
		Realtime:  handler.NewRealtimeHandler(nil, nil, nil, nil),
		Metrics:   handler.NewMetricsHandler(nil, nil),
	}
}

func TestNewRegistersRoutes(t *testing.T) {
	r := New(testConfig(t, config.EnvDevelopment), nil, nil, testHandlers())

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /documents",
		"GET /documents/create",
		"POST /documents/create",
		"GET /documents/view/:id",
		"POST /documents/delete/:id",
		"GET /documents/edit/:id",
		"POST /documents/edit/:id",
		"GET /documents/edit-page/:id",
		"POST /documents/edit-page/:id",
		"GET /documents/bookmark",
		"GET /bookmarks",
		"POST /bookmarks/create",
		"POST /bookmarks/delete/:id",
		"GET /bookmarks/go/:id",
		"GET /ws",
		"POST /notify",
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /docs/*any",
		"GET /uploads/*filepath",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestNewHidesDocsInProduction(t *testing.T) {
	r := New(testConfig(t, config.EnvProduction), nil, nil, testHandlers())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServesUploads(t *testing.T) {
	cfg := testConfig(t, config.EnvDevelopment)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Storage.UploadDir, "doc_1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.UploadDir, "doc_1", "page_1.pdf"), []byte("%PDF"), 0o644))
	r := New(cfg, nil, nil, testHandlers())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/doc_1/page_1.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
