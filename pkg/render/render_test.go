package render

import (
	"context"
	"testing"

	"github.com/shishobooks/folio/pkg/books"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewEPUBRenderer(), NewPDFRenderer(&fakeRasterizer{}, 86), NewTextRenderer())

	r, err := d.Dispatch(books.ContentTypeEPUB)
	require.NoError(t, err)
	assert.IsType(t, &EPUBRenderer{}, r)

	r, err = d.Dispatch(books.ContentTypePDF)
	require.NoError(t, err)
	assert.IsType(t, &PDFRenderer{}, r)

	r, err = d.Dispatch(books.ContentTypePlainText)
	require.NoError(t, err)
	assert.IsType(t, &TextRenderer{}, r)

	r, err = d.Dispatch("comic")
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnsupportedFormat))
}

func TestDispatch_MissingRendererIsUnsupported(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, nil, NewTextRenderer())
	_, err := d.Dispatch(books.ContentTypePDF)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnsupportedFormat))
}

func TestNewStyle(t *testing.T) {
	t.Parallel()

	style := NewStyle(settings.ThemeSepia, settings.TypographySettings{
		FontFamily:    settings.FontFamilySans,
		FontSizePx:    20,
		LineHeight:    1.75,
		MarginPercent: 8,
	})
	assert.Equal(t, "#F4ECD8", style.Background)
	assert.Equal(t, "#5B4636", style.Foreground)
	assert.Equal(t, "Noto Sans, sans-serif", style.FontFamily)
	assert.Equal(t, 20, style.FontSizePx)
	assert.InDelta(t, 1.75, style.LineHeight, 0.0001)

	css := style.CSS()
	assert.Contains(t, css, "background:#F4ECD8")
	assert.Contains(t, css, "font-size:20px")
	assert.Contains(t, css, "line-height:1.75")
	assert.Contains(t, css, "margin:0 8%")

	dark := StyleFromPreferences(settings.Preferences{Theme: settings.ThemeDark, Typography: settings.DefaultTypography()})
	assert.Equal(t, "#121212", dark.Background)
	assert.Equal(t, "#E6E6E6", dark.Foreground)
	assert.Equal(t, "Noto Serif, serif", dark.FontFamily)

	light := NewStyle("plaid", settings.TypographySettings{FontFamily: "comic"})
	assert.Equal(t, settings.ThemeLight, light.Theme)
	assert.Equal(t, "#FFFFFF", light.Background)
	assert.Equal(t, "#262626", light.Foreground)
	assert.Equal(t, "Noto Serif, serif", light.FontFamily)
}

func defaultStyle() Style {
	return StyleFromPreferences(settings.DefaultPreferences())
}

func TestRenderFallback(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	err := RenderFallback(rec, "broken.epub", errcodes.DecodeFailure("EPUB", nil), "", defaultStyle())
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "broken.epub")
	assert.Contains(t, body, "Failed to decode EPUB.")
	assert.Contains(t, body, `<a href="/" class="folio-back">Back to library</a>`)
}

func TestRenderers_HonourCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTextRenderer().Render(ctx, newRecorder(), []byte("hi"), defaultStyle())
	assert.ErrorIs(t, err, context.Canceled)
}
