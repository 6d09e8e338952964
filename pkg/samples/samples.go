// Package samples serves the bundled sample book. A file of the same name in
// the configured samples directory takes precedence over the embedded copy.
package samples

import (
	_ "embed"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/folio/pkg/config"
)

const PlainTextName = "plain.txt"

//go:embed plain.txt
var plainText []byte

type handler struct {
	dir string
}

func RegisterRoutes(e *echo.Echo, cfg *config.Config) {
	h := &handler{dir: cfg.SamplesDir}

	e.GET("/samples/"+PlainTextName, h.plainText)
}

// PlainText returns the sample text, preferring an override in dir.
func PlainText(dir string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, PlainTextName))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.WithStack(err)
		}
	}
	return plainText, nil
}

func (h *handler) plainText(c echo.Context) error {
	data, err := PlainText(h.dir)
	if err != nil {
		logger.FromContext(c.Request().Context()).Err(err).Warn("falling back to embedded sample")
		data = plainText
	}
	return errors.WithStack(c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, data))
}
