package render

import (
	"context"
	"io"
	"net/http"

	"github.com/shishobooks/folio/pkg/books"
	"github.com/shishobooks/folio/pkg/errcodes"
)

// Container is the surface a renderer draws into. http.ResponseWriter and
// httptest.ResponseRecorder both satisfy it.
type Container interface {
	io.Writer
	Header() http.Header
}

// Renderer draws a whole book (or its first page or chapter) into a
// container.
type Renderer interface {
	Render(ctx context.Context, c Container, blob []byte, style Style) error
}

// PositionedRenderer can draw a specific page or chapter. Position is
// zero-based.
type PositionedRenderer interface {
	Renderer
	RenderAt(ctx context.Context, c Container, blob []byte, style Style, position int) error
}

// Dispatcher maps a book's content type to its renderer.
type Dispatcher struct {
	EPUB *EPUBRenderer
	PDF  *PDFRenderer
	Text *TextRenderer
}

func NewDispatcher(epub *EPUBRenderer, pdf *PDFRenderer, text *TextRenderer) *Dispatcher {
	return &Dispatcher{EPUB: epub, PDF: pdf, Text: text}
}

// Dispatch returns the renderer for contentType, or unsupported_format. It
// never hands back a nil renderer without an error.
func (d *Dispatcher) Dispatch(contentType string) (Renderer, error) {
	switch contentType {
	case books.ContentTypeEPUB:
		if d.EPUB != nil {
			return d.EPUB, nil
		}
	case books.ContentTypePDF:
		if d.PDF != nil {
			return d.PDF, nil
		}
	case books.ContentTypePlainText:
		if d.Text != nil {
			return d.Text, nil
		}
	}
	return nil, errcodes.UnsupportedFormat(contentType)
}
