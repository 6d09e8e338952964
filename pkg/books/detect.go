package books

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var knownExtensionRE = regexp.MustCompile(`(?i)\.(epub|pdf|txt)$`)

// DetectContentType picks the content type for an upload from its name and
// declared MIME type only. The file extension wins, then the declared type.
// Anything unrecognised is plain text, whatever the bytes look like.
func DetectContentType(fileName, declaredType string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".epub":
		return ContentTypeEPUB
	case ".pdf":
		return ContentTypePDF
	}

	if ct := contentTypeForMime(declaredType); ct != "" {
		return ct
	}

	return ContentTypePlainText
}

func contentTypeForMime(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	switch mimeType {
	case MimeTypeEPUB:
		return ContentTypeEPUB
	case MimeTypePDF:
		return ContentTypePDF
	}
	return ""
}

// TitleFromFileName strips a trailing .epub, .pdf or .txt extension. Other
// extensions are part of the title.
func TitleFromFileName(fileName string) string {
	title := knownExtensionRE.ReplaceAllString(filepath.Base(fileName), "")
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}

// MimeTypeFor returns the Content-Type to serve a blob with.
func MimeTypeFor(contentType string, data []byte) string {
	switch contentType {
	case ContentTypeEPUB:
		return MimeTypeEPUB
	case ContentTypePDF:
		return MimeTypePDF
	}
	mt := mimetype.Detect(data)
	if strings.HasPrefix(mt.String(), "text/") {
		return mt.String()
	}
	return "text/plain; charset=utf-8"
}
