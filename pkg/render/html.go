package render

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	styleElementID = "folio-style"
	htmlMimeType   = "text/html; charset=utf-8"
)

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func styleElement(style Style) *html.Node {
	n := element(atom.Style, attr("id", styleElementID))
	n.AppendChild(text(style.CSS()))
	return n
}

// newDocument builds an empty HTML5 document with the style applied and
// returns it along with its body.
func newDocument(title string, style Style) (*html.Node, *html.Node) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	root.AppendChild(head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	t := element(atom.Title)
	t.AppendChild(text(title))
	head.AppendChild(t)
	head.AppendChild(styleElement(style))

	body := element(atom.Body)
	root.AppendChild(body)

	return doc, body
}

func writeHTML(c Container, doc *html.Node) error {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return errors.WithStack(err)
	}
	c.Header().Set("Content-Type", htmlMimeType)
	_, err := c.Write(buf.Bytes())
	return errors.WithStack(err)
}

// findFirst walks n depth-first and returns the first element with the given
// atom.
func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, a); found != nil {
			return found
		}
	}
	return nil
}

// replaceStyle removes any style element previously injected by us and
// appends a fresh one to head.
func replaceStyle(head *html.Node, style Style) {
	for child := head.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.ElementNode && child.DataAtom == atom.Style {
			for _, a := range child.Attr {
				if a.Key == "id" && a.Val == styleElementID {
					head.RemoveChild(child)
					break
				}
			}
		}
		child = next
	}
	head.AppendChild(styleElement(style))
}
