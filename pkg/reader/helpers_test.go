package reader

import (
	"context"
	"database/sql"
	"image"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/folio/pkg/binder"
	"github.com/shishobooks/folio/pkg/books"
	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/kv"
	"github.com/shishobooks/folio/pkg/migrations"
	"github.com/shishobooks/folio/pkg/render"
	"github.com/shishobooks/folio/pkg/settings"
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
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

type testEnv struct {
	e        *echo.Echo
	store    *kv.Store
	books    *books.Service
	settings *settings.Service
	sessions *Sessions
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.NewForTest()
	store := kv.NewStore(setupTestDB(t), cfg)
	bookService := books.NewService(store, cfg)
	settingsService := settings.NewService(store, cfg)

	epubRenderer := render.NewEPUBRenderer()
	dispatcher := render.NewDispatcher(epubRenderer, render.NewPDFRenderer(blankRasterizer{}, cfg.PDFZoomDPI), render.NewTextRenderer())
	sessions := NewSessions(epubRenderer, settingsService, 0)
	sessions.Watch(context.Background())
	sessions.ForgetDeleted(bookService)
	t.Cleanup(sessions.Close)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	errHandler := errcodes.NewHandler()
	e.HTTPErrorHandler = errHandler.Handle

	RegisterRoutes(e, errHandler, NewLoader(bookService), dispatcher, sessions, settingsService)

	return &testEnv{e: e, store: store, books: bookService, settings: settingsService, sessions: sessions}
}

func (env *testEnv) ingest(t *testing.T, name string, data []byte) *books.BookRecord {
	t.Helper()
	record, err := env.books.IngestBook(context.Background(), books.IngestBookOptions{Data: data, FileName: name})
	require.NoError(t, err)
	return record
}
