package books

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/folio/pkg/errcodes"
)

type handler struct {
	bookService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	books, err := h.bookService.ListBooks(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*BookRecord `json:"books"`
		Total int           `json:"total"`
	}{books, len(books)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()

	params := UploadBooksPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if len(params.FormFiles) == 0 {
		return errcodes.ValidationError(`"files" is required`)
	}

	files := make([]IngestBookOptions, 0, len(params.FormFiles))
	for _, fh := range params.FormFiles {
		f, err := fh.Open()
		if err != nil {
			return errors.WithStack(err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return errors.WithStack(err)
		}

		declaredType := fh.Header.Get(echo.HeaderContentType)
		if declaredType == "" || strings.HasPrefix(declaredType, echo.MIMEOctetStream) {
			if params.DeclaredType != "" {
				declaredType = params.DeclaredType
			}
		}

		files = append(files, IngestBookOptions{
			Data:         data,
			FileName:     fh.Filename,
			DeclaredType: declaredType,
		})
	}

	books, err := h.bookService.IngestBatch(ctx, files)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*BookRecord `json:"books"`
	}{books}

	return errors.WithStack(c.JSON(http.StatusCreated, resp))
}

func (h *handler) importSample(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.bookService.ImportSample(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.bookService.RetrieveBook(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) blob(c echo.Context) error {
	ctx := c.Request().Context()

	book, data, err := h.bookService.LoadBook(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=86400")
	return errors.WithStack(c.Blob(http.StatusOK, MimeTypeFor(book.ContentType, data), data))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.bookService.DeleteBook(ctx, c.Param("id")); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
