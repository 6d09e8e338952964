package offline

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shishobooks/folio/pkg/migrations"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var shellResources = []string{"/", "/index.html", "/manifest.webmanifest"}

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

func newSQLiteStorage(t *testing.T) Storage {
	t.Helper()
	return NewSQLiteStorage(setupTestDB(t), 3)
}

func newRedisStorage(t *testing.T) Storage {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})
	return NewRedisStorage(client)
}

var storageBackends = map[string]func(t *testing.T) Storage{
	"sqlite": newSQLiteStorage,
	"redis":  newRedisStorage,
}

// shellOrigin serves a tiny app shell and counts requests per path.
type shellOrigin struct {
	*httptest.Server
	version string

	mu   sync.Mutex
	hits map[string]int
}

func newShellOrigin(t *testing.T, version string) *shellOrigin {
	t.Helper()
	o := &shellOrigin{version: version, hits: map[string]int{}}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.hits[r.Method+" "+r.URL.Path]++
		version := o.version
		o.mu.Unlock()

		switch r.URL.Path {
		case "/", "/index.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>shell " + version + "</html>"))
		case "/manifest.webmanifest":
			w.Header().Set("Content-Type", "application/manifest+json")
			_, _ = w.Write([]byte(`{"name":"folio"}`))
		case "/app.js":
			w.Header().Set("Content-Type", "text/javascript")
			_, _ = w.Write([]byte("console.log('" + version + "')"))
		case "/api/notes":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("saved"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(o.Close)
	return o
}

func (o *shellOrigin) SetVersion(version string) {
	o.mu.Lock()
	o.version = version
	o.mu.Unlock()
}

func (o *shellOrigin) Hits(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[key]
}

func (o *shellOrigin) Origin(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(o.Server.URL)
	require.NoError(t, err)
	return u
}

// network forwards to the real transport until it is switched off.
type network struct {
	offline atomic.Bool
}

func (n *network) RoundTrip(req *http.Request) (*http.Response, error) {
	if n.offline.Load() {
		return nil, errors.New("dial tcp: network is unreachable")
	}
	return http.DefaultTransport.RoundTrip(req)
}
