package render

import (
	"context"
	"image"
	"image/color"
	"net/http/httptest"

	"github.com/pkg/errors"
)

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

type fakeRasterizer struct {
	calls int
	fail  bool
	// scale the output away from the viewport to exercise resizing
	width, height int
}

func (f *fakeRasterizer) RenderPage(_ context.Context, _ []byte, page, dpi int) (image.Image, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("engine exploded")
	}
	w, h := f.width, f.height
	if w == 0 || h == 0 {
		w, h = 10, 10
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{uint8(page), uint8(dpi), 0, 255})
	return img, nil
}
