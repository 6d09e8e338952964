package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	settingsService *Service
}

func (h *handler) getPreferences(c echo.Context) error {
	ctx := c.Request().Context()

	prefs, err := h.settingsService.LoadPreferences(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, prefs))
}

func (h *handler) updatePreferences(c echo.Context) error {
	ctx := c.Request().Context()

	var payload PreferencesPayload
	if err := c.Bind(&payload); err != nil {
		return errors.WithStack(err)
	}

	prefs, err := h.settingsService.SavePreferences(ctx, payload.Theme, payload.Typography)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, prefs))
}

func (h *handler) nextTheme(c echo.Context) error {
	ctx := c.Request().Context()

	prefs, err := h.settingsService.ToggleTheme(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, prefs))
}
