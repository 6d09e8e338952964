package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestEcho() (*echo.Echo, *Handler) {
	e := echo.New()
	h := NewHandler()
	e.HTTPErrorHandler = h.Handle
	return e, h
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestHandle_JSON(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho()

	e.GET("/missing", func(c echo.Context) error {
		return errors.WithStack(NotFound("Book"))
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})
	e.GET("/echo", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, map[string]string{"reason": "busy"})
	})

	rr := serve(e, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":{"code":"not_found","message":"Book not found.","status_code":404}}`, rr.Body.String())

	rr = serve(e, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_server_error")

	rr = serve(e, http.MethodGet, "/echo")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), `"message":"Conflict"`)
}

func TestHandle_RenderPage(t *testing.T) {
	t.Parallel()
	e, h := newTestEcho()

	fail := func(err error) echo.HandlerFunc {
		return func(c echo.Context) error {
			return errors.WithStack(err)
		}
	}
	e.GET("/books/:id", fail(UnsupportedFormat("mobi")))
	e.GET("/books/:id/invalid", fail(ValidationError("bad page")))
	e.POST("/books/:id", fail(UnsupportedFormat("mobi")))

	h.RenderPage(http.MethodGet, "/books/:id", func(c echo.Context, e *Error) error {
		return c.HTML(e.HTTPCode, "<p>"+e.Code+"</p>")
	}, CodeUnsupportedFormat, CodeNotFound)

	rr := serve(e, http.MethodGet, "/books/1")
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	assert.Equal(t, "<p>unsupported_format</p>", rr.Body.String())

	// codes that weren't registered stay JSON
	rr = serve(e, http.MethodGet, "/books/1/invalid")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"validation_error"`)

	// so do other methods on the same path
	rr = serve(e, http.MethodPost, "/books/1")
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"unsupported_format"`)
}

func TestHandle_RenderPageFailureFallsBackToJSON(t *testing.T) {
	t.Parallel()
	e, h := newTestEcho()

	e.GET("/books/:id", func(c echo.Context) error {
		return NotFound("Book")
	})
	h.RenderPage(http.MethodGet, "/books/:id", func(echo.Context, *Error) error {
		return errors.New("template broke")
	}, CodeNotFound)

	rr := serve(e, http.MethodGet, "/books/1")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"not_found"`)
}
