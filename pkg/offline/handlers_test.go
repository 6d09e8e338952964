package offline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers_StatusAndShellProxy(t *testing.T) {
	t.Parallel()
	origin := newShellOrigin(t, "v1")
	net := &network{}
	registry := NewRegistry(newSQLiteStorage(t), origin.Origin(t), shellResources, net)
	_, err := registry.Register(context.Background(), "shell-v1")
	require.NoError(t, err)

	e := echo.New()
	RegisterRoutes(e, registry)
	e.GET("/books", func(c echo.Context) error {
		return c.String(http.StatusOK, "library")
	})
	RegisterShellRoutes(e, registry)

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/offline/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var status Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "shell-v1", status.ActiveVersion)
	assert.Equal(t, StateActive, status.ActiveState)

	net.offline.Store(true)

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>shell v1</html>", rr.Body.String())

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/unknown/route", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "Offline", rr.Body.String())

	// other methods are passed along, not answered for
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/notes", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	// routes of our own are never proxied
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, "library", rr.Body.String())
}
