package offline

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func RegisterRoutes(e *echo.Echo, registry *Registry) {
	h := &handler{
		registry: registry,
	}

	e.GET("/offline/status", h.status)
}

// RegisterShellRoutes sends every request no other route claims to the shell
// origin through the registry's active interceptor. Register it last.
func RegisterShellRoutes(e *echo.Echo, registry *Registry) {
	proxy := middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{
			{Name: "shell", URL: registry.origin},
		}),
		Transport: registry,
	})
	e.Any("/*", echo.NotFoundHandler, proxy)
}
