package offline

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/folio/pkg/errcodes"
)

const (
	redisKeyPrefix = "folio:cache"

	// putAttempts bounds retries when the names set changes mid-write.
	putAttempts = 3
)

// RedisStorage keeps each cache in a hash keyed by request digest, plus a set
// of cache names.
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

// NewRedisStorageFromURL connects using a redis:// URL.
func NewRedisStorageFromURL(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return NewRedisStorage(redis.NewClient(opts)), nil
}

// redisEntry is stored as the hash value. The request key is kept alongside
// the response since the hash field is only its digest.
type redisEntry struct {
	Key string `json:"key"`
	CachedResponse
}

func namesKey() string {
	return redisKeyPrefix + ":names"
}

func entriesKey(name string) string {
	return redisKeyPrefix + ":entries:" + name
}

func (s *RedisStorage) Close() error {
	return errors.WithStack(s.client.Close())
}

func (s *RedisStorage) Open(ctx context.Context, name string) error {
	return errors.WithStack(s.client.SAdd(ctx, namesKey(), name).Err())
}

func (s *RedisStorage) Names(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, namesKey()).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStorage) Delete(ctx context.Context, name string) (bool, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.SRem(ctx, namesKey(), name)
		pipe.Del(ctx, entriesKey(name))
		return nil
	})
	if err != nil {
		return false, errors.WithStack(err)
	}
	return removed.Val() > 0, nil
}

func (s *RedisStorage) Match(ctx context.Context, name, key string) (*CachedResponse, error) {
	raw, err := s.client.HGet(ctx, entriesKey(name), digest(key)).Bytes()
	if err == redis.Nil {
		return nil, errcodes.NotFound("Cache entry")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	entry := &redisEntry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, errors.WithStack(err)
	}
	return &entry.CachedResponse, nil
}

func (s *RedisStorage) Put(ctx context.Context, name, key string, resp *CachedResponse) error {
	raw, err := json.Marshal(&redisEntry{Key: key, CachedResponse: *resp})
	if err != nil {
		return errors.WithStack(err)
	}

	// the names set is watched so a concurrent Delete aborts the write
	put := func(tx *redis.Tx) error {
		exists, err := tx.SIsMember(ctx, namesKey(), name).Result()
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Cache")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, entriesKey(name), digest(key), raw)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < putAttempts; attempt++ {
		err = s.client.Watch(ctx, put, namesKey())
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errcodes.HasCode(err, errcodes.CodeNotFound) {
		return err
	}
	return errors.WithStack(err)
}

func (s *RedisStorage) PutAll(ctx context.Context, name string, entries map[string]*CachedResponse) error {
	values := make([]interface{}, 0, len(entries)*2)
	for key, resp := range entries {
		raw, err := json.Marshal(&redisEntry{Key: key, CachedResponse: *resp})
		if err != nil {
			return errors.WithStack(err)
		}
		values = append(values, digest(key), raw)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, namesKey(), name)
		if len(values) > 0 {
			pipe.HSet(ctx, entriesKey(name), values...)
		}
		return nil
	})
	return errors.WithStack(err)
}

func (s *RedisStorage) Keys(ctx context.Context, name string) ([]string, error) {
	values, err := s.client.HVals(ctx, entriesKey(name)).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	keys := make([]string, 0, len(values))
	for _, raw := range values {
		entry := &redisEntry{}
		if err := json.Unmarshal([]byte(raw), entry); err != nil {
			return nil, errors.WithStack(err)
		}
		keys = append(keys, entry.Key)
	}
	sort.Strings(keys)
	return keys, nil
}
