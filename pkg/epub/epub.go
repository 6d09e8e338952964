package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

const containerPath = "META-INF/container.xml"

// ErrNoOPF is returned when an archive has no package document.
var ErrNoOPF = errors.New("no opf file found")

type container struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// Book is an opened EPUB archive held in memory.
type Book struct {
	OPF     *OPF
	OPFPath string
	TOC     []TOCEntry

	files map[string]*zip.File
	names []string
}

// Open reads the archive structure (container.xml, then the OPF it points at)
// without decompressing any content documents.
func Open(data []byte) (*Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	book := &Book{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		book.files[f.Name] = f
		book.names = append(book.names, f.Name)
	}

	opfPath, err := book.findOPF()
	if err != nil {
		return nil, err
	}
	book.OPFPath = opfPath

	r, err := book.open(opfPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	book.OPF, err = ParseOPF(opfPath, r)
	if err != nil {
		return nil, err
	}

	// A broken table of contents never prevents reading.
	book.TOC, _ = book.parseTOC()

	return book, nil
}

// findOPF follows container.xml to the package document, falling back to the
// first .opf in the archive when the container is missing or unhelpful.
func (b *Book) findOPF() (string, error) {
	if data, err := b.ReadFile(containerPath); err == nil {
		c := &container{}
		if err := xml.Unmarshal(data, c); err == nil {
			for _, rf := range c.Rootfiles.Rootfile {
				if _, ok := b.files[rf.FullPath]; ok {
					return rf.FullPath, nil
				}
			}
		}
	}

	for _, name := range b.names {
		if path.Ext(name) == ".opf" {
			return name, nil
		}
	}
	return "", errors.WithStack(ErrNoOPF)
}

func (b *Book) parseTOC() ([]TOCEntry, error) {
	if b.OPF.NavFilepath != "" {
		r, err := b.open(b.OPF.NavFilepath)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return parseNavDocument(r)
	}
	if b.OPF.NCXFilepath != "" {
		r, err := b.open(b.OPF.NCXFilepath)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return parseNCX(r)
	}
	return nil, nil
}

func (b *Book) open(name string) (io.ReadCloser, error) {
	f, ok := b.files[name]
	if !ok {
		return nil, errors.Errorf("%s not found in archive", name)
	}
	r, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return r, nil
}

// ReadFile returns the decompressed contents of an archive member.
func (b *Book) ReadFile(name string) ([]byte, error) {
	r, err := b.open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	return data, errors.WithStack(err)
}

// Cover returns the cover image bytes and MIME type, or nil when the book
// declares no cover.
func (b *Book) Cover() ([]byte, string, error) {
	if b.OPF.CoverFilepath == "" {
		return nil, "", nil
	}
	data, err := b.ReadFile(b.OPF.CoverFilepath)
	if err != nil {
		return nil, "", err
	}
	return data, b.OPF.CoverMimeType, nil
}

// ChapterCount is the number of documents in the reading order.
func (b *Book) ChapterCount() int {
	return len(b.OPF.Spine)
}

// Chapter returns the content document at spine position i.
func (b *Book) Chapter(i int) ([]byte, error) {
	if i < 0 || i >= len(b.OPF.Spine) {
		return nil, errors.Errorf("chapter %d out of range (%d chapters)", i, len(b.OPF.Spine))
	}
	return b.ReadFile(b.OPF.Spine[i].Filepath)
}

// Author joins the declared authors, or returns "" when there are none.
func (b *Book) Author() string {
	return strings.Join(b.OPF.Authors, ", ")
}
