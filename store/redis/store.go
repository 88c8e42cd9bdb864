// Package redis stores relay state in Redis through Grove KV.
//
// Records are JSON values under per-entity keys (see keys.go). Listing goes
// through sorted-set indexes scored by creation time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	relaystore "github.com/xraph/bftrelay/store"
)

var _ relaystore.Store = (*Store)(nil)

// Store is a Redis-backed store.Store.
type Store struct {
	kv  *kv.Store
	rdb goredis.UniversalClient
}

// New wraps a Grove KV store opened with the Redis driver.
func New(store *kv.Store) *Store {
	return &Store{
		kv:  store,
		rdb: redisdriver.UnwrapClient(store),
	}
}

// Migrate is a no-op; Redis needs no schema.
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *Store) Close() error {
	return s.kv.Close()
}

// scoreFromTime is fractional unix seconds.
func scoreFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func isNotFound(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}

func (s *Store) getEntity(ctx context.Context, key string, dest any) error {
	raw, err := s.kv.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (s *Store) setEntity(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("bftrelay/redis: marshal entity: %w", err)
	}
	return s.kv.SetRaw(ctx, key, raw)
}

// createIndexedScript sets KEYS[1] to ARGV[1] if absent and adds ARGV[3]
// with score ARGV[2] to every index in KEYS[2:]. If an index write fails the
// entity and earlier index entries are removed before the error is returned,
// so a failed create leaves nothing behind.
var createIndexedScript = goredis.NewScript(`
if not redis.call("SET", KEYS[1], ARGV[1], "NX") then
	return 0
end
for i = 2, #KEYS do
	local res = redis.pcall("ZADD", KEYS[i], ARGV[2], ARGV[3])
	if type(res) == "table" and res.err then
		redis.call("DEL", KEYS[1])
		for j = 2, i - 1 do
			redis.call("ZREM", KEYS[j], ARGV[3])
		end
		return res
	end
end
return 1
`)

// createIndexed stores value under key together with its index entries in
// one script, and reports whether key was absent.
func createIndexed(ctx context.Context, rdb goredis.Scripter, key string, value any, score float64, member string, indexes ...string) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("bftrelay/redis: marshal entity: %w", err)
	}
	keys := append([]string{key}, indexes...)
	n, err := createIndexedScript.Run(ctx, rdb, keys, raw, score, member).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// zRangeByScoreIDs returns the members of key scored within [lo, hi] in
// ascending order. Infinite bounds are open.
func (s *Store) zRangeByScoreIDs(ctx context.Context, key string, lo, hi float64) ([]string, error) {
	return s.rdb.ZRangeByScore(ctx, key, &goredis.ZRangeBy{
		Min: scoreBound(lo),
		Max: scoreBound(hi),
	}).Result()
}

func scoreBound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// applyPagination slices items to the requested page. A non-positive limit
// means no limit.
func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset >= len(items) {
		return items[:0]
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
