package books

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/epub"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/kv"
	"github.com/shishobooks/folio/pkg/version"
	"golang.org/x/sync/errgroup"
)

const (
	blobSuffix = "blob"

	SampleTitle  = "Sample Text"
	SampleAuthor = "Public Domain"
	SamplePath   = "/samples/plain.txt"

	batchConcurrency = 4
)

type Service struct {
	store     *kv.Store
	prefix    string
	client    *http.Client
	sampleURL string

	mu          sync.Mutex
	lastCreated time.Time
	onDelete    []func(id string)
}

func NewService(store *kv.Store, cfg *config.Config) *Service {
	host := cfg.ServerHost
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return &Service{
		store:     store,
		prefix:    cfg.BookKeyPrefix,
		client:    &http.Client{Timeout: 30 * time.Second},
		sampleURL: fmt.Sprintf("http://%s:%d%s", host, cfg.ServerPort, SamplePath),
	}
}

func (svc *Service) recordKey(id string) string {
	return kv.Key(svc.prefix, id)
}

func (svc *Service) blobKey(id string) string {
	return kv.Key(svc.prefix, id, blobSuffix)
}

// nextCreatedAt hands out strictly increasing timestamps so that books
// ingested back to back still sort deterministically.
func (svc *Service) nextCreatedAt() time.Time {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(svc.lastCreated) {
		now = svc.lastCreated.Add(time.Nanosecond)
	}
	svc.lastCreated = now
	return now
}

// ListBooks returns every stored record, newest first. Blobs are never read.
// Records that fail to decode are skipped so one bad entry can't hide the
// rest of the library.
func (svc *Service) ListBooks(ctx context.Context) ([]*BookRecord, error) {
	log := logger.FromContext(ctx)

	entries, err := svc.store.Scan(ctx, kv.ScanOptions{
		Prefix:          svc.prefix + ":",
		ExcludeSuffixes: []string{":" + blobSuffix},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	books := make([]*BookRecord, 0, len(entries))
	for _, entry := range entries {
		record := &BookRecord{}
		if err := json.Unmarshal(entry.Value, record); err != nil || record.ID == "" {
			log.Warn("skipping undecodable book record", logger.Data{"key": entry.Key})
			continue
		}
		books = append(books, record)
	}

	sort.SliceStable(books, func(i, j int) bool {
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})

	return books, nil
}

// IngestBook stores a new book. The record and the blob are written in one
// transaction, so either both exist afterwards or neither does.
func (svc *Service) IngestBook(ctx context.Context, opts IngestBookOptions) (*BookRecord, error) {
	log := logger.FromContext(ctx)

	record := &BookRecord{
		ID:          uuid.NewString(),
		Title:       TitleFromFileName(opts.FileName),
		Author:      DefaultAuthor,
		ContentType: DetectContentType(opts.FileName, opts.DeclaredType),
		CreatedAt:   svc.nextCreatedAt(),
		Size:        int64(len(opts.Data)),
	}

	if record.ContentType == ContentTypeEPUB {
		svc.applyEPUBMetadata(ctx, record, opts.Data)
	}
	if opts.Title != "" {
		record.Title = opts.Title
	}
	if opts.Author != "" {
		record.Author = opts.Author
	}

	value, err := json.Marshal(record)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = svc.store.Update(ctx, func(ctx context.Context, tx *kv.Tx) error {
		if _, err := tx.Get(ctx, svc.recordKey(record.ID)); err == nil {
			return errors.Errorf("book id %s already in use", record.ID)
		}
		if err := tx.Put(ctx, svc.blobKey(record.ID), opts.Data); err != nil {
			return err
		}
		return tx.Put(ctx, svc.recordKey(record.ID), value)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	log.Info("book ingested", logger.Data{
		"id":           record.ID,
		"title":        record.Title,
		"content_type": record.ContentType,
		"size":         record.Size,
	})

	return record, nil
}

// applyEPUBMetadata fills in the author and cover from the package document.
// Nothing here can fail an ingest.
func (svc *Service) applyEPUBMetadata(ctx context.Context, record *BookRecord, data []byte) {
	log := logger.FromContext(ctx)

	book, err := epub.Open(data)
	if err != nil {
		log.Warn("failed to read epub metadata", logger.Data{"file": record.Title, "error": err.Error()})
		return
	}

	if author := book.Author(); author != "" {
		record.Author = author
	}

	cover, _, err := book.Cover()
	if err != nil {
		log.Warn("failed to read epub cover", logger.Data{"file": record.Title, "error": err.Error()})
		return
	}
	if cover == nil {
		return
	}

	record.CoverImage, err = coverDataURL(cover)
	if err != nil {
		log.Warn("failed to thumbnail epub cover", logger.Data{"file": record.Title, "error": err.Error()})
	}
}

// IngestBatch ingests every file concurrently. It returns once all of them
// are stored, or with the first error. Records are returned in input order.
func (svc *Service) IngestBatch(ctx context.Context, files []IngestBookOptions) ([]*BookRecord, error) {
	records := make([]*BookRecord, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, file := range files {
		g.Go(func() error {
			record, err := svc.IngestBook(gctx, file)
			if err != nil {
				return errors.Wrapf(err, "ingest %s", file.FileName)
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

// RetrieveBook returns the record alone.
func (svc *Service) RetrieveBook(ctx context.Context, id string) (*BookRecord, error) {
	value, err := svc.store.Get(ctx, svc.recordKey(id))
	if err != nil {
		if errcodes.HasCode(err, errcodes.CodeNotFound) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return decodeRecord(value)
}

// LoadBook returns the record and its blob, or not_found if either half is
// missing.
func (svc *Service) LoadBook(ctx context.Context, id string) (*BookRecord, []byte, error) {
	var record *BookRecord
	var blob []byte

	err := svc.store.View(ctx, func(ctx context.Context, tx *kv.Tx) error {
		value, err := tx.Get(ctx, svc.recordKey(id))
		if err != nil {
			return err
		}
		record, err = decodeRecord(value)
		if err != nil {
			return err
		}
		blob, err = tx.Get(ctx, svc.blobKey(id))
		return err
	})
	if err != nil {
		if errcodes.HasCode(err, errcodes.CodeNotFound) {
			return nil, nil, errcodes.NotFound("Book")
		}
		return nil, nil, errors.WithStack(err)
	}

	return record, blob, nil
}

// DeleteBook removes the record and its blob together.
func (svc *Service) DeleteBook(ctx context.Context, id string) error {
	err := svc.store.Update(ctx, func(ctx context.Context, tx *kv.Tx) error {
		if _, err := tx.Get(ctx, svc.recordKey(id)); err != nil {
			return err
		}
		return tx.Delete(ctx, svc.recordKey(id), svc.blobKey(id))
	})
	if err != nil {
		if errcodes.HasCode(err, errcodes.CodeNotFound) {
			return errcodes.NotFound("Book")
		}
		return errors.WithStack(err)
	}

	svc.mu.Lock()
	hooks := svc.onDelete
	svc.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}

	logger.FromContext(ctx).Info("book deleted", logger.Data{"id": id})
	return nil
}

// OnDelete registers fn to run after a book is deleted.
func (svc *Service) OnDelete(fn func(id string)) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.onDelete = append(svc.onDelete, fn)
}

// ImportSample fetches the bundled sample text and ingests it.
func (svc *Service) ImportSample(ctx context.Context) (*BookRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.sampleURL, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch sample")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errcodes.NotFound("Sample")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch sample: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.IngestBook(ctx, IngestBookOptions{
		Data:         data,
		FileName:     "sample.txt",
		DeclaredType: "text/plain",
		Title:        SampleTitle,
		Author:       SampleAuthor,
	})
}

func decodeRecord(value []byte) (*BookRecord, error) {
	record := &BookRecord{}
	if err := json.Unmarshal(value, record); err != nil {
		return nil, errcodes.DecodeFailure("book record", err)
	}
	return record, nil
}
