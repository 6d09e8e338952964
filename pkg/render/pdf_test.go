package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/shishobooks/folio/internal/testgen"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewport(t *testing.T) {
	t.Parallel()

	w, h := Viewport(PageSize{Width: 612, Height: 792}, 86)
	assert.Equal(t, 731, w)
	assert.Equal(t, 946, h)

	w, h = Viewport(PageSize{Width: 72, Height: 72}, 72)
	assert.Equal(t, 72, w)
	assert.Equal(t, 72, h)

	w, h = Viewport(PageSize{}, 86)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestPageSizes(t *testing.T) {
	t.Parallel()

	sizes, err := PageSizes(testgen.PDF(3, 612, 792))
	require.NoError(t, err)
	require.Len(t, sizes, 3)
	assert.InDelta(t, 612, sizes[0].Width, 0.01)
	assert.InDelta(t, 792, sizes[0].Height, 0.01)
}

func TestPDFRenderer_RenderMatchesViewport(t *testing.T) {
	t.Parallel()

	raster := &fakeRasterizer{}
	r := NewPDFRenderer(raster, 86)

	rec := newRecorder()
	err := r.Render(context.Background(), rec, testgen.PDF(2, 612, 792), defaultStyle())
	require.NoError(t, err)

	assert.Equal(t, 1, raster.calls)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get("X-Page-Count"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 731, img.Bounds().Dx())
	assert.Equal(t, 946, img.Bounds().Dy())
}

func TestPDFRenderer_RenderAtOutOfRange(t *testing.T) {
	t.Parallel()

	raster := &fakeRasterizer{}
	r := NewPDFRenderer(raster, 86)

	err := r.RenderAt(context.Background(), newRecorder(), testgen.PDF(1, 612, 792), defaultStyle(), 4)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))
	assert.Equal(t, 0, raster.calls)
}

func TestPDFRenderer_DecodeFailures(t *testing.T) {
	t.Parallel()

	r := NewPDFRenderer(&fakeRasterizer{}, 86)
	err := r.Render(context.Background(), newRecorder(), []byte("not a pdf"), defaultStyle())
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeDecodeFailure))

	r = NewPDFRenderer(&fakeRasterizer{fail: true}, 86)
	err = r.Render(context.Background(), newRecorder(), testgen.PDF(1, 612, 792), defaultStyle())
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeDecodeFailure))
	assert.Contains(t, err.Error(), "engine exploded")
}
