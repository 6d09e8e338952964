package reader

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/render"
	"github.com/shishobooks/folio/pkg/settings"
)

// RegisterRoutes mounts the reader. Errors reading a book are drawn as a
// fallback page through errHandler instead of JSON.
func RegisterRoutes(e *echo.Echo, errHandler *errcodes.Handler, loader *Loader, dispatcher *render.Dispatcher, sessions *Sessions, settingsService *settings.Service) {
	h := &handler{
		loader:          loader,
		dispatcher:      dispatcher,
		sessions:        sessions,
		settingsService: settingsService,
	}

	g := e.Group("/reader")

	g.GET("/:id", h.read)
	errHandler.RenderPage(http.MethodGet, "/reader/:id", h.errorPage,
		errcodes.CodeNotFound, errcodes.CodeUnsupportedFormat, errcodes.CodeDecodeFailure)
	g.POST("/:id/restyle", h.restyle)
	g.GET("/:id/epub/*", h.resource)
	g.DELETE("/:id", h.close)
}
