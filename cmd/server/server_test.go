package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"trackup/config"
	"trackup/db"
	"trackup/services/taskindex"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRouter(t *testing.T, staticDir string) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(accessLogMiddleware(zap.NewNop()))
	router.Use(corsMiddleware)
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	registerStatic(router, staticDir)
	return router
}

func TestHealthAndMiddleware(t *testing.T) {
	router := testRouter(t, t.TempDir())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>TrackUp</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('hi')"), 0o644))
	router := testRouter(t, dir)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TrackUp")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = newLogger("info")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestOpenTaskIndexNeedsDatabase(t *testing.T) {
	cfg := &config.Config{PineconeAPIKey: "pc-key", OpenAIAPIKey: "sk-key", PineconeIndexName: "trackup-tasks"}
	assert.False(t, vectorIndexEnabled(cfg))

	index := openTaskIndex(cfg, db.NewInMemoryProjectRepository(), zap.NewNop())
	assert.IsType(t, &taskindex.FuzzyIndex{}, index)

	cfg.DatabaseURL = "postgres://localhost/trackup"
	assert.True(t, vectorIndexEnabled(cfg))

	cfg.OpenAIAPIKey = ""
	assert.False(t, vectorIndexEnabled(cfg))
}
