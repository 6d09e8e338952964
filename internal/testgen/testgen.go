// Package testgen builds in-memory book fixtures (EPUB, PDF, plain text) for
// tests.
package testgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// EPUBOptions configures the generated EPUB file.
type EPUBOptions struct {
	Title         string
	Authors       []string
	Chapters      []string // body text per chapter, defaults to one chapter
	HasCover      bool
	CoverMimeType string // "image/jpeg" or "image/png", defaults to "image/png"
	HasNav        bool   // include an EPUB 3 navigation document
	NoContainer   bool   // omit META-INF/container.xml
}

// PlainText returns size bytes of ASCII prose.
func PlainText(size int) []byte {
	const line = "The quick brown fox jumps over the lazy dog.\n"
	text := strings.Repeat(line, size/len(line)+1)
	return []byte(text[:size])
}

// WriteFile writes data into dir and returns the full path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
