package kv

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestStore(t *testing.T, quota int64) *Store {
	t.Helper()
	cfg := config.NewForTest()
	cfg.StorageQuotaBytes = quota
	return NewStore(setupTestDB(t), cfg)
}

func TestStore_PutGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.Put(ctx, "folio:theme", []byte(`"dark"`)))

	value, err := s.Get(ctx, "folio:theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(value))

	// Overwrite.
	require.NoError(t, s.Put(ctx, "folio:theme", []byte(`"sepia"`)))
	value, err = s.Get(ctx, "folio:theme")
	require.NoError(t, err)
	assert.Equal(t, `"sepia"`, string(value))

	has, err := s.Has(ctx, "folio:theme")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 0)

	_, err := s.Get(context.Background(), "folio:book:missing")
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))
}

func TestStore_UpdateIsAtomic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, 0)

	boom := errors.New("boom")
	err := s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		if err := tx.Put(ctx, "folio:book:1", []byte("record")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	has, err := s.Has(ctx, "folio:book:1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.Put(ctx, "folio:book:1", []byte("record")))
	require.NoError(t, s.Put(ctx, "folio:book:1:blob", []byte("blob")))
	require.NoError(t, s.Put(ctx, "folio:book:2", []byte("other")))

	require.NoError(t, s.Delete(ctx, "folio:book:1", "folio:book:1:blob", "folio:book:never"))

	entries, err := s.Scan(ctx, ScanOptions{Prefix: "folio:book:"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "folio:book:2", entries[0].Key)
}

func TestStore_ScanExcludesSuffixes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, 0)

	require.NoError(t, s.Put(ctx, "folio:book:a", []byte("a")))
	require.NoError(t, s.Put(ctx, "folio:book:a:blob", []byte("aaaa")))
	require.NoError(t, s.Put(ctx, "folio:book:b", []byte("b")))
	require.NoError(t, s.Put(ctx, "folio:theme", []byte(`"light"`)))

	entries, err := s.Scan(ctx, ScanOptions{Prefix: "folio:book:", ExcludeSuffixes: []string{":blob"}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "folio:book:a", entries[0].Key)
	assert.Equal(t, "folio:book:b", entries[1].Key)
}

func TestStore_Quota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, 10)

	require.NoError(t, s.Put(ctx, "k1", []byte("123456")))

	err := s.Put(ctx, "k2", []byte("12345"))
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeStorageQuotaExceeded))

	// Overwriting an existing key only counts the new size.
	require.NoError(t, s.Put(ctx, "k1", []byte("1234567890")))

	used, err := s.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), used)
}

func TestStore_QuotaFailureRollsBackWholeUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, 8)

	err := s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		if err := tx.Put(ctx, "folio:book:1", []byte("rec")); err != nil {
			return err
		}
		return tx.Put(ctx, "folio:book:1:blob", []byte("too large"))
	})
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeStorageQuotaExceeded))

	used, err := s.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)
}

func TestKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "folio:book:abc:blob", Key("folio:book", "abc", "blob"))
}
