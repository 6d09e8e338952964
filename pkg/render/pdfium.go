package render

import (
	"context"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/pkg/errors"
)

// PDFium rasterizes pages with the WebAssembly build of PDFium. The runtime is
// started on first use.
type PDFium struct {
	timeout time.Duration

	once    sync.Once
	pool    pdfium.Pool
	initErr error
}

func NewPDFium(timeout time.Duration) *PDFium {
	return &PDFium{timeout: timeout}
}

func (p *PDFium) init() error {
	p.once.Do(func() {
		p.pool, p.initErr = webassembly.Init(webassembly.Config{
			MinIdle:  1,
			MaxIdle:  1,
			MaxTotal: 1,
		})
	})
	return errors.WithStack(p.initErr)
}

func (p *PDFium) RenderPage(ctx context.Context, data []byte, page, dpi int) (image.Image, error) {
	if err := p.init(); err != nil {
		return nil, err
	}

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := p.renderPage(data, page, dpi)
		ch <- result{img, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.img, res.err
	}
}

func (p *PDFium) renderPage(data []byte, page, dpi int) (image.Image, error) {
	instance, err := p.pool.GetInstance(p.timeout)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document}) //nolint:errcheck

	rendered, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: dpi,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    page,
			},
		},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rendered.Cleanup()

	// The rendered image lives in WebAssembly memory until Cleanup, so copy it.
	src := rendered.Result.Image
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst, nil
}

// Close shuts the runtime down if it was started.
func (p *PDFium) Close() error {
	if p.pool == nil {
		return nil
	}
	return errors.WithStack(p.pool.Close())
}
