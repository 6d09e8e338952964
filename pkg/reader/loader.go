package reader

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/folio/pkg/books"
)

// BookLoader is the part of the content store the reader needs.
type BookLoader interface {
	LoadBook(ctx context.Context, id string) (*books.BookRecord, []byte, error)
}

// Loader fetches a book for display. Each load belongs to one navigation: if
// its context is cancelled first, the result is thrown away.
type Loader struct {
	books BookLoader
}

func NewLoader(bookLoader BookLoader) *Loader {
	return &Loader{books: bookLoader}
}

// Load returns the record and blob for id, or ctx.Err() when the caller
// navigated away before the store answered.
func (l *Loader) Load(ctx context.Context, id string) (*books.BookRecord, []byte, error) {
	type result struct {
		record *books.BookRecord
		blob   []byte
		err    error
	}
	ch := make(chan result, 1)

	go func() {
		record, blob, err := l.books.LoadBook(ctx, id)
		ch <- result{record, blob, err}
	}()

	select {
	case <-ctx.Done():
		logger.FromContext(ctx).Debug("book load abandoned", logger.Data{"id": id})
		return nil, nil, errors.WithStack(ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, nil, res.err
		}
		return res.record, res.blob, nil
	}
}
