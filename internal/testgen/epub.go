package testgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// EPUB builds a valid EPUB archive with the given options. The archive holds
// mimetype, container.xml, OEBPS/content.opf, one XHTML document per chapter
// and optionally a cover image and navigation document.
func EPUB(t *testing.T, opts EPUBOptions) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// mimetype must be first and uncompressed
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("failed to create mimetype entry: %v", err)
	}
	if _, err := w.Write([]byte("application/epub+zip")); err != nil {
		t.Fatalf("failed to write mimetype: %v", err)
	}

	if !opts.NoContainer {
		containerXML := `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
		mustWriteZipFile(t, zw, "META-INF/container.xml", []byte(containerXML))
	}

	chapters := opts.Chapters
	if len(chapters) == 0 {
		chapters = []string{"This is a test chapter."}
	}

	coverMimeType := opts.CoverMimeType
	if coverMimeType == "" {
		coverMimeType = "image/png"
	}
	coverFilename := ""
	if opts.HasCover {
		coverFilename = "cover.png"
		if coverMimeType == "image/jpeg" {
			coverFilename = "cover.jpg"
		}
		mustWriteZipFile(t, zw, "OEBPS/"+coverFilename, Image(t, coverMimeType, 600, 900))
	}

	mustWriteZipFile(t, zw, "OEBPS/content.opf", []byte(generateOPF(opts, len(chapters), coverFilename, coverMimeType)))

	for i, text := range chapters {
		mustWriteZipFile(t, zw, fmt.Sprintf("OEBPS/chapter%d.xhtml", i+1), []byte(generateChapter(i+1, text)))
	}

	if opts.HasNav {
		mustWriteZipFile(t, zw, "OEBPS/nav.xhtml", []byte(generateNav(len(chapters))))
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close EPUB archive: %v", err)
	}
	return buf.Bytes()
}

func generateChapter(n int, text string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>Chapter %d</title>
</head>
<body>
  <h1>Chapter %d</h1>
  <p>%s</p>
</body>
</html>`, n, n, escapeXML(text))
}

func generateNav(chapters int) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="toc">
    <ol>
`)
	for i := 1; i <= chapters; i++ {
		fmt.Fprintf(&buf, "      <li><a href=\"chapter%d.xhtml\">Chapter %d</a></li>\n", i, i)
	}
	buf.WriteString("    </ol>\n  </nav>\n</body>\n</html>")
	return buf.String()
}

func generateOPF(opts EPUBOptions, chapters int, coverFilename, coverMimeType string) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
`)

	if opts.Title != "" {
		fmt.Fprintf(&buf, "    <dc:title id=\"title\">%s</dc:title>\n", escapeXML(opts.Title))
	}
	for i, author := range opts.Authors {
		fmt.Fprintf(&buf, "    <dc:creator id=\"creator%d\" opf:role=\"aut\">%s</dc:creator>\n", i, escapeXML(author))
	}
	buf.WriteString("    <dc:identifier id=\"bookid\">urn:uuid:test-book-id</dc:identifier>\n")
	buf.WriteString("    <dc:language>en</dc:language>\n")
	if coverFilename != "" {
		buf.WriteString("    <meta name=\"cover\" content=\"cover-image\"/>\n")
	}
	buf.WriteString("  </metadata>\n")

	buf.WriteString("  <manifest>\n")
	for i := 1; i <= chapters; i++ {
		fmt.Fprintf(&buf, "    <item id=\"chapter%d\" href=\"chapter%d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", i, i)
	}
	if opts.HasNav {
		buf.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	}
	if coverFilename != "" {
		fmt.Fprintf(&buf, "    <item id=\"cover-image\" href=\"%s\" media-type=\"%s\"/>\n", coverFilename, coverMimeType)
	}
	buf.WriteString("  </manifest>\n")

	buf.WriteString("  <spine>\n")
	for i := 1; i <= chapters; i++ {
		fmt.Fprintf(&buf, "    <itemref idref=\"chapter%d\"/>\n", i)
	}
	buf.WriteString("  </spine>\n")
	buf.WriteString("</package>")

	return buf.String()
}

func mustWriteZipFile(t *testing.T, zw *zip.Writer, name string, data []byte) {
	t.Helper()
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

// Image returns a solid-colour image encoded as PNG or JPEG.
func Image(t *testing.T, mimeType string, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	blue := color.RGBA{0, 100, 200, 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, blue)
		}
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	default: // image/png
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	}

	return buf.Bytes()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&apos;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// Zip builds an arbitrary archive, useful for malformed EPUB fixtures.
func Zip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		mustWriteZipFile(t, zw, name, data)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	return buf.Bytes()
}
