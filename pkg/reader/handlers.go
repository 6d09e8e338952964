package reader

import (
	"bytes"
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/folio/pkg/books"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/render"
	"github.com/shishobooks/folio/pkg/settings"
)

type handler struct {
	loader          *Loader
	dispatcher      *render.Dispatcher
	sessions        *Sessions
	settingsService *settings.Service
}

// page buffers a render so nothing reaches the client until it succeeded.
type page struct {
	header http.Header
	body   bytes.Buffer
}

func newPage() *page {
	return &page{header: http.Header{}}
}

func (p *page) Header() http.Header {
	return p.header
}

func (p *page) Write(b []byte) (int, error) {
	return p.body.Write(b)
}

func (p *page) flush(c echo.Context, status int) error {
	for key, values := range p.header {
		c.Response().Header()[key] = values
	}
	return errors.WithStack(c.Blob(status, p.header.Get(echo.HeaderContentType), p.body.Bytes()))
}

// bookTitleKey carries the title of the book being read to the error page.
const bookTitleKey = "reader.book_title"

func (h *handler) read(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	params := ReadQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	record, blob, err := h.loader.Load(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	c.Set(bookTitleKey, record.Title)

	renderer, err := h.dispatcher.Dispatch(record.ContentType)
	if err != nil {
		logger.FromContext(ctx).Warn("no renderer for book", logger.Data{"id": id, "content_type": record.ContentType})
		return errors.WithStack(err)
	}

	prefs, err := h.settingsService.LoadPreferences(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	style := render.StyleFromPreferences(*prefs)

	p := newPage()
	switch r := renderer.(type) {
	case *render.EPUBRenderer:
		err = h.renderEPUB(ctx, c, p, record, blob, params.Chapter)
	case render.PositionedRenderer:
		err = r.RenderAt(ctx, p, blob, style, params.Page)
	default:
		err = r.Render(ctx, p, blob, style)
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return p.flush(c, http.StatusOK)
}

func (h *handler) renderEPUB(ctx context.Context, c echo.Context, p *page, record *books.BookRecord, blob []byte, chapter int) error {
	instance, err := h.sessions.Open(ctx, record.ID, blob)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(c.Request().URL.Path, "/")
	instance.SetLinks(base, base+"/epub/")
	return instance.Render(ctx, p, chapter)
}

// errorPage keeps the reading screen navigable when a book can't be shown:
// the error becomes a styled page with a way back to the library.
func (h *handler) errorPage(c echo.Context, e *errcodes.Error) error {
	title, _ := c.Get(bookTitleKey).(string)
	style := render.StyleFromPreferences(h.settingsService.Current())

	p := newPage()
	if err := render.RenderFallback(p, title, e, render.DefaultBackURL, style); err != nil {
		return errors.WithStack(err)
	}
	return p.flush(c, e.HTTPCode)
}

// session returns the live EPUB instance for the book in the path, opening
// one if needed.
func (h *handler) session(ctx context.Context, id string) (*render.EPUBInstance, error) {
	if instance, ok := h.sessions.Get(id); ok {
		return instance, nil
	}
	record, blob, err := h.loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.ContentType != books.ContentTypeEPUB {
		return nil, errcodes.UnsupportedFormat(record.ContentType)
	}
	return h.sessions.Open(ctx, id, blob)
}

func (h *handler) restyle(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	c.Set("disallow_empty_body", false)
	params := RestylePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	instance, err := h.session(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	current := h.settingsService.Current()
	theme, typo := params.apply(current.Theme, current.Typography)
	style := render.NewStyle(theme, typo)
	instance.Restyle(style)

	resp := struct {
		Style render.Style `json:"style"`
	}{style}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) resource(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	name := path.Clean("/" + c.Param("*"))
	instance, err := h.session(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	data, mediaType, err := instance.Resource(strings.TrimPrefix(name, "/"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Blob(http.StatusOK, mediaType, data))
}

func (h *handler) close(c echo.Context) error {
	if !h.sessions.Forget(c.Param("id")) {
		return errcodes.NotFound("Reader session")
	}
	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
