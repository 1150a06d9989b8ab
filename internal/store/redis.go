package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/planttracer/odb/internal/types"
)

// maxWatchAttempts bounds optimistic retries of unconditional writes.
const maxWatchAttempts = 16

// envelope is the value stored under an item key.
type envelope struct {
	Version int64             `json:"v"`
	Indexes map[string]string `json:"ix,omitempty"`
	Body    json.RawMessage   `json:"b"`
}

// RedisBackend stores each table as JSON strings plus key and index sets:
//
//	<table>:i:<key>             item envelope
//	<table>:keys                set of item keys
//	<table>:x:<index>:<value>   set of item keys with that index value
type RedisBackend struct {
	client redis.UniversalClient
	// scanCount is the COUNT hint passed to SSCAN.
	scanCount int64
}

// NewRedisBackend wraps client. The backend owns the client from here on.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client, scanCount: DefaultScanPageSize}
}

func (b *RedisBackend) Name() string {
	return "redis"
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// EnsureTables records each table's declared indexes. Redis needs no schema.
func (b *RedisBackend) EnsureTables(ctx context.Context, specs []TableSpec) error {
	for _, spec := range specs {
		if err := b.client.HSet(ctx, spec.Name+":meta", "indexes", strings.Join(spec.Indexes, ",")).Err(); err != nil {
			return fmt.Errorf("failed to register %s: %w", spec.Name, err)
		}
	}
	return nil
}

func itemKey(table, key string) string {
	return table + ":i:" + key
}

func keysKey(table string) string {
	return table + ":keys"
}

func indexKey(table, index, value string) string {
	return table + ":x:" + index + ":" + value
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readEnvelope(ctx context.Context, c stringGetter, table, key string) (*envelope, error) {
	raw, err := c.Get(ctx, itemKey(table, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("corrupt item %s in %s: %w", key, table, err)
	}
	return &env, nil
}

// replace queues the writes that move key from old to item.
func replace(ctx context.Context, pipe redis.Pipeliner, table string, old *envelope, item Item) error {
	raw, err := json.Marshal(envelope{Version: item.Version, Indexes: item.Indexes, Body: item.Body})
	if err != nil {
		return err
	}
	if old != nil {
		for name, value := range old.Indexes {
			if item.Indexes[name] != value {
				pipe.SRem(ctx, indexKey(table, name, value), item.Key)
			}
		}
	}
	pipe.Set(ctx, itemKey(table, item.Key), raw, 0)
	pipe.SAdd(ctx, keysKey(table), item.Key)
	for name, value := range item.Indexes {
		pipe.SAdd(ctx, indexKey(table, name, value), item.Key)
	}
	return nil
}

func (b *RedisBackend) Put(ctx context.Context, table string, item Item, requireAbsent bool) error {
	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err := b.client.Watch(ctx, func(tx *redis.Tx) error {
			old, err := readEnvelope(ctx, tx, table, item.Key)
			if err != nil {
				return err
			}
			if old != nil && requireAbsent {
				return types.ErrAlreadyExists
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				return replace(ctx, pipe, table, old, item)
			})
			return err
		}, itemKey(table, item.Key))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("put %s in %s: %w", item.Key, table, types.ErrVersionConflict)
}

func (b *RedisBackend) Swap(ctx context.Context, table string, item Item, expected int64) error {
	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		old, err := readEnvelope(ctx, tx, table, item.Key)
		if err != nil {
			return err
		}
		if old == nil || old.Version != expected {
			return types.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return replace(ctx, pipe, table, old, item)
		})
		return err
	}, itemKey(table, item.Key))
	if errors.Is(err, redis.TxFailedErr) {
		return types.ErrVersionConflict
	}
	return err
}

func (b *RedisBackend) Get(ctx context.Context, table, key string) (*Item, error) {
	env, err := readEnvelope(ctx, b.client, table, key)
	if err != nil || env == nil {
		return nil, err
	}
	return &Item{Key: key, Version: env.Version, Indexes: env.Indexes, Body: env.Body}, nil
}

// mget loads keys, skipping any that vanished since they were listed.
func (b *RedisBackend) mget(ctx context.Context, table string, keys []string) ([]Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = itemKey(table, k)
	}
	values, err := b.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			return nil, fmt.Errorf("corrupt item %s in %s: %w", keys[i], table, err)
		}
		items = append(items, Item{Key: keys[i], Version: env.Version, Indexes: env.Indexes, Body: env.Body})
	}
	return items, nil
}

func (b *RedisBackend) Query(ctx context.Context, table, index, value string) ([]Item, error) {
	keys, err := b.client.SMembers(ctx, indexKey(table, index, value)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	items, err := b.mget(ctx, table, keys)
	if err != nil {
		return nil, err
	}
	matched := items[:0]
	for _, item := range items {
		if item.Indexes[index] == value {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (b *RedisBackend) Delete(ctx context.Context, table, key string) error {
	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err := b.client.Watch(ctx, func(tx *redis.Tx) error {
			old, err := readEnvelope(ctx, tx, table, key)
			if err != nil || old == nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, itemKey(table, key))
				pipe.SRem(ctx, keysKey(table), key)
				for name, value := range old.Indexes {
					pipe.SRem(ctx, indexKey(table, name, value), key)
				}
				return nil
			})
			return err
		}, itemKey(table, key))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("delete %s in %s: %w", key, table, types.ErrVersionConflict)
}

// Scan walks the key set with SSCAN. Items added or removed while scanning
// may or may not be seen.
func (b *RedisBackend) Scan(ctx context.Context, table string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		seen := make(map[string]struct{})
		var cursor uint64
		for {
			keys, next, err := b.client.SScan(ctx, keysKey(table), cursor, "", b.scanCount).Result()
			if err != nil {
				yield(Item{}, err)
				return
			}
			fresh := keys[:0]
			for _, k := range keys {
				if _, dup := seen[k]; !dup {
					seen[k] = struct{}{}
					fresh = append(fresh, k)
				}
			}
			items, err := b.mget(ctx, table, fresh)
			if err != nil {
				yield(Item{}, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
