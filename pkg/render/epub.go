package render

import (
	"bytes"
	"context"
	"mime"
	"path"
	"strconv"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/shishobooks/folio/pkg/epub"
	"github.com/shishobooks/folio/pkg/errcodes"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUBRenderer opens EPUB blobs into live instances.
type EPUBRenderer struct{}

func NewEPUBRenderer() *EPUBRenderer {
	return &EPUBRenderer{}
}

// Load parses the archive on its own goroutine. If ctx is cancelled first,
// Load returns ctx.Err() and the parse result is dropped when it arrives.
func (r *EPUBRenderer) Load(ctx context.Context, blob []byte) (*EPUBInstance, error) {
	type result struct {
		book *epub.Book
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		book, err := epub.Open(blob)
		ch <- result{book, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, errcodes.DecodeFailure("EPUB", res.err)
		}
		if res.book.ChapterCount() == 0 {
			return nil, errcodes.DecodeFailure("EPUB", errors.New("the reading order is empty"))
		}
		return &EPUBInstance{book: res.book}, nil
	}
}

func (r *EPUBRenderer) Render(ctx context.Context, c Container, blob []byte, style Style) error {
	return r.RenderAt(ctx, c, blob, style, 0)
}

func (r *EPUBRenderer) RenderAt(ctx context.Context, c Container, blob []byte, style Style, chapter int) error {
	instance, err := r.Load(ctx, blob)
	if err != nil {
		return err
	}
	instance.Restyle(style)
	return instance.Render(ctx, c, chapter)
}

// EPUBInstance is a parsed book that can be drawn repeatedly and restyled
// without reading the blob again.
type EPUBInstance struct {
	book *epub.Book

	mu    sync.RWMutex
	style Style
	// pageURL is where the instance is being read, used for chapter links.
	pageURL string
	// resourceBase is the URL prefix archive members are served under. When
	// set, chapters get a <base> so their images and stylesheets resolve.
	resourceBase string
}

// SetLinks sets the URLs later renders link chapters and resources against.
func (i *EPUBInstance) SetLinks(pageURL, resourceBase string) {
	i.mu.Lock()
	i.pageURL = pageURL
	i.resourceBase = resourceBase
	i.mu.Unlock()
}

// Restyle swaps the style used by later renders.
func (i *EPUBInstance) Restyle(style Style) {
	i.mu.Lock()
	i.style = style
	i.mu.Unlock()
}

func (i *EPUBInstance) Style() Style {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.style
}

func (i *EPUBInstance) ChapterCount() int {
	return i.book.ChapterCount()
}

func (i *EPUBInstance) Title() string {
	return i.book.OPF.Title
}

func (i *EPUBInstance) TOC() []epub.TOCEntry {
	return i.book.TOC
}

// Resource returns an archive member and its media type.
func (i *EPUBInstance) Resource(name string) ([]byte, string, error) {
	name = path.Clean(name)
	data, err := i.book.ReadFile(name)
	if err != nil {
		return nil, "", errcodes.NotFound("Resource")
	}
	if mt := mime.TypeByExtension(path.Ext(name)); mt != "" {
		return data, mt, nil
	}
	return data, mimetype.Detect(data).String(), nil
}

// Render draws one spine document with the current style injected.
func (i *EPUBInstance) Render(ctx context.Context, c Container, chapter int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if chapter < 0 || chapter >= i.book.ChapterCount() {
		return errcodes.NotFound("Chapter")
	}

	data, err := i.book.Chapter(chapter)
	if err != nil {
		return errcodes.DecodeFailure("EPUB chapter", err)
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return errcodes.DecodeFailure("EPUB chapter", err)
	}

	head := findFirst(doc, atom.Head)
	body := findFirst(doc, atom.Body)
	if head == nil || body == nil {
		return errcodes.DecodeFailure("EPUB chapter", errors.New("missing head or body"))
	}

	i.mu.RLock()
	style, pageURL, resourceBase := i.style, i.pageURL, i.resourceBase
	i.mu.RUnlock()

	if resourceBase != "" {
		dir := path.Dir(i.book.OPF.Spine[chapter].Filepath)
		href := resourceBase
		if dir != "." {
			href += dir + "/"
		}
		setBase(head, href)
	}
	replaceStyle(head, style)
	body.AppendChild(i.chapterNav(pageURL, chapter))

	c.Header().Set("X-Chapter-Count", strconv.Itoa(i.book.ChapterCount()))
	return writeHTML(c, doc)
}

func (i *EPUBInstance) chapterNav(pageURL string, chapter int) *html.Node {
	nav := element(atom.Nav, attr("class", "folio-chapters"))
	link := func(label string, n int) {
		a := element(atom.A, attr("href", pageURL+"?chapter="+strconv.Itoa(n)))
		a.AppendChild(text(label))
		nav.AppendChild(a)
	}
	if chapter > 0 {
		link("Previous", chapter-1)
	}
	if chapter < i.book.ChapterCount()-1 {
		link("Next", chapter+1)
	}
	return nav
}

func setBase(head *html.Node, href string) {
	for child := head.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.ElementNode && child.DataAtom == atom.Base {
			head.RemoveChild(child)
		}
		child = next
	}
	base := element(atom.Base, attr("href", href))
	head.InsertBefore(base, head.FirstChild)
}
