package books

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, bookService *Service) {
	h := &handler{
		bookService: bookService,
	}

	g.GET("", h.list)
	g.POST("", h.upload)
	g.POST("/sample", h.importSample)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/blob", h.blob)
	g.DELETE("/:id", h.delete)
}
