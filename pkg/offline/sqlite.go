package offline

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/folio/pkg/database"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/uptrace/bun"
)

type cacheName struct {
	bun.BaseModel `bun:"table:cache_names,alias:cn" tstype:"-"`

	Name      string    `bun:",pk"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

type cacheEntry struct {
	bun.BaseModel `bun:"table:cache_entries,alias:ce" tstype:"-"`

	CacheName  string    `bun:",pk"`
	URL        string    `bun:"url,pk"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	StatusCode int       `bun:",notnull"`
	Header     []byte    `bun:",notnull"`
	Body       []byte    `bun:",notnull"`
}

// SQLiteStorage keeps caches in the cache_names and cache_entries tables.
type SQLiteStorage struct {
	db         *bun.DB
	maxRetries int
}

func NewSQLiteStorage(db *bun.DB, maxRetries int) *SQLiteStorage {
	return &SQLiteStorage{db: db, maxRetries: maxRetries}
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) error {
	_, err := s.db.NewInsert().
		Model(&cacheName{Name: name, CreatedAt: time.Now()}).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	return errors.WithStack(err)
}

func (s *SQLiteStorage) Names(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.NewSelect().
		Model((*cacheName)(nil)).
		Column("name").
		Order("cn.created_at ASC", "cn.name ASC").
		Scan(ctx, &names)
	return names, errors.WithStack(err)
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	existed := false
	err := database.RunInTx(ctx, s.db, s.maxRetries, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*cacheName)(nil)).
			Where("name = ?", name).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		existed = n > 0

		_, err = tx.NewDelete().
			Model((*cacheEntry)(nil)).
			Where("cache_name = ?", name).
			Exec(ctx)
		return errors.WithStack(err)
	})
	return existed, err
}

func (s *SQLiteStorage) Match(ctx context.Context, name, key string) (*CachedResponse, error) {
	entry := &cacheEntry{}
	err := s.db.NewSelect().
		Model(entry).
		Where("ce.cache_name = ?", name).
		Where("ce.url = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Cache entry")
		}
		return nil, errors.WithStack(err)
	}

	resp := &CachedResponse{
		StatusCode: entry.StatusCode,
		Body:       entry.Body,
		CreatedAt:  entry.CreatedAt,
	}
	if err := json.Unmarshal(entry.Header, &resp.Header); err != nil {
		return nil, errors.WithStack(err)
	}
	return resp, nil
}

func (s *SQLiteStorage) Put(ctx context.Context, name, key string, resp *CachedResponse) error {
	row, err := newCacheEntry(name, key, resp)
	if err != nil {
		return err
	}

	return database.RunInTx(ctx, s.db, s.maxRetries, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*cacheName)(nil)).
			Where("cn.name = ?", name).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Cache")
		}
		return upsertEntries(ctx, tx, []*cacheEntry{row})
	})
}

func (s *SQLiteStorage) PutAll(ctx context.Context, name string, entries map[string]*CachedResponse) error {
	rows := make([]*cacheEntry, 0, len(entries))
	for key, resp := range entries {
		row, err := newCacheEntry(name, key, resp)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return database.RunInTx(ctx, s.db, s.maxRetries, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&cacheName{Name: name, CreatedAt: time.Now()}).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return upsertEntries(ctx, tx, rows)
	})
}

func upsertEntries(ctx context.Context, tx bun.Tx, rows []*cacheEntry) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.NewInsert().
		Model(&rows).
		On("CONFLICT (cache_name, url) DO UPDATE").
		Set("created_at = EXCLUDED.created_at").
		Set("status_code = EXCLUDED.status_code").
		Set("header = EXCLUDED.header").
		Set("body = EXCLUDED.body").
		Exec(ctx)
	return errors.WithStack(err)
}

func (s *SQLiteStorage) Keys(ctx context.Context, name string) ([]string, error) {
	keys := []string{}
	err := s.db.NewSelect().
		Model((*cacheEntry)(nil)).
		Column("url").
		Where("ce.cache_name = ?", name).
		Order("ce.url ASC").
		Scan(ctx, &keys)
	return keys, errors.WithStack(err)
}

func newCacheEntry(name, key string, resp *CachedResponse) (*cacheEntry, error) {
	header := resp.Header
	if header == nil {
		header = http.Header{}
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}
	createdAt := resp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &cacheEntry{
		CacheName:  name,
		URL:        key,
		CreatedAt:  createdAt,
		StatusCode: resp.StatusCode,
		Header:     headerJSON,
		Body:       body,
	}, nil
}
