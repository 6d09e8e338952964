package books

import (
	"time"
)

const (
	//tygo:emit export type ContentType = typeof ContentTypeEPUB | typeof ContentTypePDF | typeof ContentTypePlainText;
	ContentTypeEPUB      = "epub"
	ContentTypePDF       = "pdf"
	ContentTypePlainText = "plain-text"
)

const (
	MimeTypeEPUB = "application/epub+zip"
	MimeTypePDF  = "application/pdf"

	DefaultAuthor = "Unknown"
)

// BookRecord is the metadata half of a stored book. The bytes live separately
// under the record's blob key and are never part of the record.
type BookRecord struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author,omitempty"`
	ContentType     string    `json:"content_type" tstype:"ContentType"`
	CoverImage      string    `json:"cover_image,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ReadingProgress float64   `json:"reading_progress"`
	Size            int64     `json:"size"`
}

type IngestBookOptions struct {
	Data         []byte
	FileName     string
	DeclaredType string

	// Title and Author override what would be derived from the file.
	Title  string
	Author string
}
