package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/folio/pkg/binder"
	"github.com/shishobooks/folio/pkg/books"
	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/kv"
	"github.com/shishobooks/folio/pkg/offline"
	"github.com/shishobooks/folio/pkg/reader"
	"github.com/shishobooks/folio/pkg/render"
	"github.com/shishobooks/folio/pkg/samples"
	"github.com/shishobooks/folio/pkg/settings"
	"github.com/uptrace/bun"
)

// New wires every route onto one echo instance. Reader sessions stop
// following preference changes when the returned server shuts down.
func New(ctx context.Context, cfg *config.Config, db *bun.DB, raster render.Rasterizer, registry *offline.Registry) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	errHandler := errcodes.NewHandler()

	store := kv.NewStore(db, cfg)
	bookService := books.NewService(store, cfg)
	settingsService := settings.NewService(store, cfg)
	if _, err := settingsService.LoadPreferences(ctx); err != nil {
		return nil, errors.Wrap(err, "load preferences")
	}

	epubRenderer := render.NewEPUBRenderer()
	dispatcher := render.NewDispatcher(
		epubRenderer,
		render.NewPDFRenderer(raster, cfg.PDFZoomDPI),
		render.NewTextRenderer(),
	)
	sessions := reader.NewSessions(epubRenderer, settingsService, 0)
	sessions.Watch(ctx)
	sessions.ForgetDeleted(bookService)

	books.RegisterRoutesWithGroup(e.Group("/books"), bookService)
	settings.RegisterRoutes(e, settingsService)
	reader.RegisterRoutes(e, errHandler, reader.NewLoader(bookService), dispatcher, sessions, settingsService)
	samples.RegisterRoutes(e, cfg)
	offline.RegisterRoutes(e, registry)

	// everything else is the app shell
	offline.RegisterShellRoutes(e, registry)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errHandler.Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}
	srv.RegisterOnShutdown(sessions.Close)

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
