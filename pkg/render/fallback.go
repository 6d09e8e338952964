package render

import (
	"golang.org/x/net/html/atom"
)

const DefaultBackURL = "/"

// RenderFallback draws a visible error page in place of a book that couldn't
// be rendered. It always carries a link back to the library.
func RenderFallback(c Container, title string, cause error, backURL string, style Style) error {
	if backURL == "" {
		backURL = DefaultBackURL
	}

	doc, body := newDocument(title, style)

	main := element(atom.Main, attr("class", "folio-fallback"))
	body.AppendChild(main)

	h1 := element(atom.H1)
	h1.AppendChild(text("This book couldn't be opened"))
	main.AppendChild(h1)

	if title != "" {
		p := element(atom.P, attr("class", "folio-fallback-title"))
		p.AppendChild(text(title))
		main.AppendChild(p)
	}

	if cause != nil {
		p := element(atom.P, attr("class", "folio-fallback-reason"))
		p.AppendChild(text(cause.Error()))
		main.AppendChild(p)
	}

	back := element(atom.A, attr("href", backURL), attr("class", "folio-back"))
	back.AppendChild(text("Back to library"))
	main.AppendChild(back)

	return writeHTML(c, doc)
}
