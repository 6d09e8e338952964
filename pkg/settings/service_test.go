package settings

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/kv"
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

func newTestService(t *testing.T) (*Service, *kv.Store) {
	t.Helper()
	cfg := config.NewForTest()
	store := kv.NewStore(setupTestDB(t), cfg)
	return NewService(store, cfg), store
}

func TestLoadPreferences_Defaults(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	prefs, err := svc.LoadPreferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, prefs.Theme)
	assert.Equal(t, TypographySettings{FontFamily: FontFamilySerif, FontSizePx: 18, LineHeight: 1.5, MarginPercent: 10}, prefs.Typography)
}

func TestSavePreferences_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	typo := TypographySettings{FontFamily: FontFamilySans, FontSizePx: 22, LineHeight: 1.8, MarginPercent: 12}
	_, err := svc.SavePreferences(ctx, ThemeDark, typo)
	require.NoError(t, err)

	// A fresh service over the same store sees the same values.
	fresh := NewService(store, config.NewForTest())
	prefs, err := fresh.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, prefs.Theme)
	assert.Equal(t, typo, prefs.Typography)

	raw, err := store.Get(ctx, "folio:theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(raw))
}

func TestSavePreferences_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.SavePreferences(ctx, "neon", DefaultTypography())
	require.Error(t, err)

	bad := DefaultTypography()
	bad.FontSizePx = 40
	_, err = svc.SavePreferences(ctx, ThemeDark, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "font_size_px")

	// nothing was written
	has, err := store.Has(ctx, "folio:theme")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLoadPreferences_IgnoresCorruptValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, store.Put(ctx, "folio:theme", []byte(`"plaid"`)))
	require.NoError(t, store.Put(ctx, "folio:typo", []byte(`{broken`)))

	prefs, err := svc.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), *prefs)
}

func TestLoadPreferences_KeepsSavedCurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.SavePreferences(ctx, ThemeDark, DefaultPreferences().Typography)
	require.NoError(t, err)

	// a read that started before the save returns what it saw but leaves the
	// saved value current
	require.NoError(t, store.Put(ctx, "folio:theme", []byte(`"sepia"`)))
	prefs, err := svc.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeSepia, prefs.Theme)
	assert.Equal(t, ThemeDark, svc.Current().Theme)
}

func TestLoadPreferences_SetsCurrentOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, store.Put(ctx, "folio:theme", []byte(`"dark"`)))
	_, err := svc.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, svc.Current().Theme)
}

func TestNextTheme_CycleOfThreeIsIdentity(t *testing.T) {
	t.Parallel()

	for _, theme := range []string{ThemeLight, ThemeSepia, ThemeDark} {
		assert.Equal(t, theme, NextTheme(NextTheme(NextTheme(theme))))
	}
	assert.Equal(t, ThemeSepia, NextTheme(ThemeLight))
	assert.Equal(t, ThemeDark, NextTheme(ThemeSepia))
	assert.Equal(t, ThemeLight, NextTheme(ThemeDark))
}

func TestToggleTheme(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	prefs, err := svc.ToggleTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeSepia, prefs.Theme)

	prefs, err = svc.ToggleTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, prefs.Theme)
	assert.Equal(t, DefaultTypography(), prefs.Typography)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	ch, unsubscribe := svc.Subscribe()

	_, err := svc.SavePreferences(ctx, ThemeSepia, DefaultTypography())
	require.NoError(t, err)
	_, err = svc.SavePreferences(ctx, ThemeDark, DefaultTypography())
	require.NoError(t, err)

	// only the newest value is pending
	select {
	case prefs := <-ch:
		assert.Equal(t, ThemeDark, prefs.Theme)
	case <-time.After(time.Second):
		t.Fatal("no preferences published")
	}
	assert.Equal(t, ThemeDark, svc.Current().Theme)

	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok)

	// publishing after unsubscribing is safe
	_, err = svc.SavePreferences(ctx, ThemeLight, DefaultTypography())
	require.NoError(t, err)
}

func TestSavePreferences_QuotaLeavesNoPartialState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := config.NewForTest()
	cfg.StorageQuotaBytes = 10
	store := kv.NewStore(setupTestDB(t), cfg)
	svc := NewService(store, cfg)

	_, err := svc.SavePreferences(ctx, ThemeDark, DefaultTypography())
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeStorageQuotaExceeded))

	has, err := store.Has(ctx, "folio:theme")
	require.NoError(t, err)
	assert.False(t, has)
}
