package kv

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/database"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/uptrace/bun"
)

// Store is a durable string-keyed store of opaque values backed by the
// entries table. Every multi-key write happens in a single transaction.
type Store struct {
	db         *bun.DB
	maxRetries int
	quota      int64
}

func NewStore(db *bun.DB, cfg *config.Config) *Store {
	return &Store{
		db:         db,
		maxRetries: cfg.DatabaseMaxRetries,
		quota:      cfg.StorageQuotaBytes,
	}
}

// Tx is a view of the store inside a write transaction.
type Tx struct {
	tx    bun.Tx
	quota int64
}

// Get returns the value stored under key, or a not_found error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, s.db, key)
}

// Has reports whether key exists without reading its value.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*Entry)(nil)).
		Where(`e."key" = ?`, key).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.Put(ctx, key, value)
	})
}

// Delete removes every given key atomically. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.Delete(ctx, keys...)
	})
}

// Update runs fn in a write transaction. Either every write fn makes is
// persisted or none is.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return database.RunInTx(ctx, s.db, s.maxRetries, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Tx{tx: tx, quota: s.quota})
	})
}

// View runs fn in a transaction so that several reads observe one snapshot.
// Writes made through tx inside View are committed like Update's.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return s.Update(ctx, fn)
}

// Scan returns every entry matching opts, ordered by key.
func (s *Store) Scan(ctx context.Context, opts ScanOptions) ([]*Entry, error) {
	entries := []*Entry{}
	q := s.db.NewSelect().
		Model(&entries).
		Where(`substr(e."key", 1, ?) = ?`, len(opts.Prefix), opts.Prefix).
		Order("e.key ASC")
	for _, suffix := range opts.ExcludeSuffixes {
		q = q.Where(`substr(e."key", -?) != ?`, len(suffix), suffix)
	}
	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entries, nil
}

// Usage returns the total number of bytes currently stored.
func (s *Store) Usage(ctx context.Context) (int64, error) {
	return usage(ctx, s.db, "")
}

func (t *Tx) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, t.tx, key)
}

// Put upserts key. It fails with storage_quota_exceeded when the write would
// push the store past its quota.
func (t *Tx) Put(ctx context.Context, key string, value []byte) error {
	size := int64(len(value))
	if t.quota > 0 {
		used, err := usage(ctx, t.tx, key)
		if err != nil {
			return err
		}
		if used+size > t.quota {
			available := t.quota - used
			if available < 0 {
				available = 0
			}
			return errcodes.StorageQuotaExceeded(size, available)
		}
	}

	now := time.Now()
	entry := &Entry{
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
		Value:     value,
		Size:      size,
	}
	_, err := t.tx.NewInsert().
		Model(entry).
		On(`CONFLICT ("key") DO UPDATE`).
		Set("updated_at = EXCLUDED.updated_at").
		Set("value = EXCLUDED.value").
		Set("size = EXCLUDED.size").
		Exec(ctx)
	return errors.WithStack(err)
}

func (t *Tx) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := t.tx.NewDelete().
		Model((*Entry)(nil)).
		Where(`"key" IN (?)`, bun.In(keys)).
		Exec(ctx)
	return errors.WithStack(err)
}

func get(ctx context.Context, db bun.IDB, key string) ([]byte, error) {
	entry := &Entry{}
	err := db.NewSelect().
		Model(entry).
		Where(`e."key" = ?`, key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Entry")
		}
		return nil, errors.WithStack(err)
	}
	return entry.Value, nil
}

// usage sums the stored sizes, leaving out the key about to be overwritten.
func usage(ctx context.Context, db bun.IDB, except string) (int64, error) {
	var total int64
	q := db.NewSelect().
		Model((*Entry)(nil)).
		ColumnExpr("COALESCE(SUM(e.size), 0)")
	if except != "" {
		q = q.Where(`e."key" != ?`, except)
	}
	err := q.Scan(ctx, &total)
	return total, errors.WithStack(err)
}

// Key joins key parts with ":".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
