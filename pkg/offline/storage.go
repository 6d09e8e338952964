package offline

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"
)

// CachedResponse is the stored copy of a response.
type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Storage holds named caches of responses keyed by request identity.
// Deleting a cache removes all of its entries at once.
type Storage interface {
	// Open creates the cache if it doesn't exist yet.
	Open(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
	// Delete reports whether the cache existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Match returns a not_found error when nothing is stored under key.
	Match(ctx context.Context, name, key string) (*CachedResponse, error)
	// Put stores into an existing cache. It returns a not_found error, and
	// writes nothing, when the cache doesn't exist or was deleted.
	Put(ctx context.Context, name, key string, resp *CachedResponse) error
	// PutAll creates the cache if needed and stores every entry, or none of
	// them.
	PutAll(ctx context.Context, name string, entries map[string]*CachedResponse) error
	Keys(ctx context.Context, name string) ([]string, error)
}

// RequestKey identifies a request inside a cache.
func RequestKey(method, url string) string {
	return method + " " + url
}

// digest shortens a request key to a fixed length.
func digest(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
