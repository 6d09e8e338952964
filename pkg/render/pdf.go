package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
	"github.com/shishobooks/folio/pkg/errcodes"
	"golang.org/x/image/draw"
)

const pointsPerInch = 72

var disablePDFConfigDir sync.Once

// Rasterizer turns one page of a PDF into pixels.
type Rasterizer interface {
	RenderPage(ctx context.Context, data []byte, page, dpi int) (image.Image, error)
}

// PageSize is a page's dimensions in points.
type PageSize struct {
	Width  float64
	Height float64
}

// PDFRenderer draws a single page at a fixed zoom as a PNG. It ignores the
// style.
type PDFRenderer struct {
	raster Rasterizer
	dpi    int
}

func NewPDFRenderer(raster Rasterizer, dpi int) *PDFRenderer {
	disablePDFConfigDir.Do(api.DisableConfigDir)
	return &PDFRenderer{raster: raster, dpi: dpi}
}

// PageSizes reads the MediaBox of every page.
func PageSizes(blob []byte) ([]PageSize, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	dims, err := api.PageDims(bytes.NewReader(blob), conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	sizes := make([]PageSize, 0, len(dims))
	for _, d := range dims {
		sizes = append(sizes, PageSize{Width: d.Width, Height: d.Height})
	}
	return sizes, nil
}

// Viewport is the pixel size of a page at the given DPI.
func Viewport(size PageSize, dpi int) (int, int) {
	scale := float64(dpi) / pointsPerInch
	w := int(math.Ceil(size.Width * scale))
	h := int(math.Ceil(size.Height * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func (r *PDFRenderer) Render(ctx context.Context, c Container, blob []byte, style Style) error {
	return r.RenderAt(ctx, c, blob, style, 0)
}

func (r *PDFRenderer) RenderAt(ctx context.Context, c Container, blob []byte, _ Style, page int) error {
	sizes, err := PageSizes(blob)
	if err != nil {
		return errcodes.DecodeFailure("PDF", err)
	}
	if len(sizes) == 0 {
		return errcodes.DecodeFailure("PDF", errors.New("document has no pages"))
	}
	if page < 0 || page >= len(sizes) {
		return errcodes.NotFound("Page")
	}

	if r.raster == nil {
		return errcodes.DecodeFailure("PDF", errors.New("no rasterizer available"))
	}

	img, err := r.raster.RenderPage(ctx, blob, page, r.dpi)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errcodes.DecodeFailure("PDF", err)
	}

	// The surface always matches the page viewport exactly.
	w, h := Viewport(sizes[page], r.dpi)
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errors.WithStack(err)
	}

	c.Header().Set("Content-Type", "image/png")
	c.Header().Set("X-Page-Count", strconv.Itoa(len(sizes)))
	_, err = c.Write(buf.Bytes())
	return errors.WithStack(err)
}
