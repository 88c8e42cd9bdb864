package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestCreateIndexed(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestClient(t)

	key := entityKey(prefixExecution, "0xaa")
	ok, err := createIndexed(ctx, rdb, key, map[string]string{"fingerprint": "0xaa"}, 10, "0xaa", zExecutionAll, zExecutionTarget+"0xbb")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first create must report the key as new")
	}

	for _, idx := range []string{zExecutionAll, zExecutionTarget + "0xbb"} {
		if n := rdb.ZCard(ctx, idx).Val(); n != 1 {
			t.Fatalf("index %s: expected 1 member, got %d", idx, n)
		}
	}

	ok, err = createIndexed(ctx, rdb, key, map[string]string{"fingerprint": "0xaa"}, 20, "0xaa", zExecutionAll)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second create of the same key must report it as present")
	}
	if score := rdb.ZScore(ctx, zExecutionAll, "0xaa").Val(); score != 10 {
		t.Fatalf("losing create must not touch the index, score = %v", score)
	}
}

func TestCreateIndexedIndexFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestClient(t)

	// A string under the second index key makes its ZADD fail with WRONGTYPE.
	broken := zExecutionTarget + "0xbb"
	if err := mr.Set(broken, "not a sorted set"); err != nil {
		t.Fatal(err)
	}

	key := entityKey(prefixExecution, "0xaa")
	ok, err := createIndexed(ctx, rdb, key, map[string]string{"fingerprint": "0xaa"}, 10, "0xaa", zExecutionAll, broken)
	if err == nil {
		t.Fatal("expected the index failure to surface")
	}
	if ok {
		t.Fatal("failed create must not report success")
	}

	if mr.Exists(key) {
		t.Fatal("entity must be removed when an index write fails")
	}
	if n := rdb.ZCard(ctx, zExecutionAll).Val(); n != 0 {
		t.Fatalf("earlier index entries must be removed, %d remain", n)
	}

	// With the index repaired the same create succeeds.
	mr.Del(broken)
	ok, err = createIndexed(ctx, rdb, key, map[string]string{"fingerprint": "0xaa"}, 10, "0xaa", zExecutionAll, broken)
	if err != nil || !ok {
		t.Fatalf("retry after repair: ok=%v err=%v", ok, err)
	}
}

func TestCreateIndexedRelayer(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestClient(t)

	if err := mr.Set(zRelayerAll, "not a sorted set"); err != nil {
		t.Fatal(err)
	}
	key := entityKey(prefixRelayer, "0x0a")
	if _, err := createIndexed(ctx, rdb, key, map[string]string{"address": "0x0a"}, 1, "0x0a", zRelayerAll); err == nil {
		t.Fatal("expected error")
	}
	if mr.Exists(key) {
		t.Fatal("relayer entity must not outlive a failed index write")
	}
}
