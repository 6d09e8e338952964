package settings

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, settingsService *Service) {
	h := &handler{
		settingsService: settingsService,
	}

	g := e.Group("/settings")

	g.GET("/preferences", h.getPreferences)
	g.PUT("/preferences", h.updatePreferences)
	g.POST("/preferences/theme/next", h.nextTheme)
}
