package server

import (
	"context"
	"database/sql"
	"image"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/migrations"
	"github.com/shishobooks/folio/pkg/offline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

type blankRasterizer struct{}

func (blankRasterizer) RenderPage(_ context.Context, _ []byte, _, _ int) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestNew_Routes(t *testing.T) {
	t.Parallel()

	shell := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("shell " + r.URL.Path))
	}))
	t.Cleanup(shell.Close)

	cfg := config.NewForTest()
	db := setupTestDB(t)
	origin, err := url.Parse(shell.URL)
	require.NoError(t, err)
	registry := offline.NewRegistry(offline.NewSQLiteStorage(db, cfg.DatabaseMaxRetries), origin, cfg.ShellResources, nil)

	srv, err := New(context.Background(), cfg, db, blankRasterizer{}, registry)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	assert.Equal(t, "127.0.0.1:3689", srv.Addr)

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/books", http.StatusOK, `"total":0`},
		{http.MethodGet, "/books/missing", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/settings/preferences", http.StatusOK, `"theme":"light"`},
		{http.MethodGet, "/reader/missing", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/samples/plain.txt", http.StatusOK, "GARDEN PARTY"},
		{http.MethodGet, "/offline/status", http.StatusOK, `"caches":[]`},
		{http.MethodGet, "/index.html", http.StatusOK, "shell /index.html"},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, rr.Code, tt.path)
		assert.Contains(t, rr.Body.String(), tt.body, tt.path)
	}
}
