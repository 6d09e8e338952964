package errcodes

import (
	"net/http"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

// PageFunc renders a client error as a page for a route whose clients read
// pages rather than JSON.
type PageFunc func(c echo.Context, e *Error) error

type pageRoute struct {
	method string
	path   string
	codes  map[string]struct{}
	render PageFunc
}

type Handler struct {
	pages []pageRoute
}

func NewHandler() *Handler {
	return &Handler{}
}

// RenderPage has errors carrying one of codes, raised by the route registered
// at method and path, rendered by fn. Every other error stays JSON. Routes
// must be set up before the handler serves requests.
func (h *Handler) RenderPage(method, path string, fn PageFunc, codes ...string) {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	h.pages = append(h.pages, pageRoute{method: method, path: path, codes: set, render: fn})
}

// Handle is an Echo error handler that uses HTTP errors accordingly, and any
// generic error will be interpreted as an internal server error.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}

	if h.handlePage(err, c) {
		return
	}

	httpCode, payload := h.generatePayload(c, err)

	// Internal server errors
	if httpCode == http.StatusInternalServerError {
		log.Err(err).Error("server error")
	}

	if err := c.JSON(httpCode, payload); err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

// handlePage reports whether err was written as a page.
func (h *Handler) handlePage(err error, c echo.Context) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	route := h.pageFor(c, e.Code)
	if route == nil {
		return false
	}

	log := logger.FromEchoContext(c)
	if e.Code == CodeDecodeFailure {
		log.Err(err).Warn("book can't be displayed", map[string]interface{}{"code": e.Code, "path": c.Request().URL.Path})
	}

	if perr := route.render(c, e); perr != nil {
		log.Err(errors.WithStack(perr)).Error("error page render error")
		// fall back to JSON unless the page already started going out
		return c.Response().Committed
	}
	return true
}

func (h *Handler) pageFor(c echo.Context, code string) *pageRoute {
	method := c.Request().Method
	path := c.Path()
	for i := range h.pages {
		route := &h.pages[i]
		if !strings.EqualFold(route.method, method) || route.path != path {
			continue
		}
		if _, ok := route.codes[code]; ok {
			return route
		}
	}
	return nil
}

func (h *Handler) generatePayload(c echo.Context, err error) (int, map[string]interface{}) {
	return h.generateIndividualPayload(c, err)
}

func (h *Handler) generateIndividualPayload(_ echo.Context, err error) (int, map[string]interface{}) {
	code := ""
	msg := ""
	httpCode := http.StatusInternalServerError

	// Echo errors
	var he *echo.HTTPError
	if ok := errors.As(err, &he); ok {
		httpCode = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
		code = strcase.ToSnake(msg)
	}

	// Custom errors
	var e *Error
	if ok := errors.As(err, &e); ok {
		httpCode = e.HTTPCode
		code = e.Code
		msg = e.Message
	}

	// Internal server errors that aren't Echo errors or custom errors
	if httpCode == http.StatusInternalServerError && msg == "" {
		code = "internal_server_error"
		msg = "Internal Server Error"
	}

	return httpCode, map[string]interface{}{
		"error": map[string]interface{}{
			"code":        code,
			"message":     msg,
			"status_code": httpCode,
		},
	}
}
