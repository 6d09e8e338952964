package offline

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	registry *Registry
}

func (h *handler) status(c echo.Context) error {
	ctx := c.Request().Context()

	status, err := h.registry.Status(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, status))
}
