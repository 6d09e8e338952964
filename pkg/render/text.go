package render

import (
	"context"
	"unicode/utf8"

	"github.com/shishobooks/folio/pkg/errcodes"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextRenderer shows a plain-text book as one continuous article.
type TextRenderer struct{}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

func (r *TextRenderer) Render(ctx context.Context, c Container, blob []byte, style Style) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := DecodeText(blob)
	if err != nil {
		return errcodes.DecodeFailure("plain text", err)
	}

	doc, body := newDocument("", style)
	article := element(atom.Article, attr("class", "folio-text"), attr("style", "white-space:pre-wrap;"))
	article.AppendChild(text(content))
	body.AppendChild(article)

	return writeHTML(c, doc)
}

// DecodeText turns a text blob into a string. A byte order mark selects UTF-8
// or UTF-16; without one the blob is read as UTF-8 if valid and as
// Windows-1252 otherwise.
func DecodeText(blob []byte) (string, error) {
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !utf8.Valid(blob) {
		fallback = charmap.Windows1252.NewDecoder()
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), blob)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
