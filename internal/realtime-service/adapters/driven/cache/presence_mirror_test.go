package cache

import (
	"context"
	"os"
	"testing"

	"gride/internal/realtime-service/core/domain/model"

	"github.com/redis/go-redis/v9"
)

// testClient connects to GRIDE_TEST_REDIS_ADDR, skipping when it is unset.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("GRIDE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GRIDE_TEST_REDIS_ADDR not set")
	}
	rdb, err := Connect(context.Background(), addr, "", 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRemoveLeavesEntryOfAnotherSession(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	pm := NewPresenceMirror(rdb)
	t.Cleanup(func() { rdb.Del(ctx, key("mirror-test-driver")) })

	entry := model.PresenceEntry{DriverID: "mirror-test-driver", SessionID: "new"}
	if err := pm.Save(ctx, entry); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := pm.Remove(ctx, entry.DriverID, "old"); err != nil {
		t.Fatalf("remove stale: %v", err)
	}
	got, ok, err := pm.Get(ctx, entry.DriverID)
	if err != nil || !ok || got.SessionID != "new" {
		t.Fatalf("get = %+v, %v, %v", got, ok, err)
	}

	if err := pm.Remove(ctx, entry.DriverID, "new"); err != nil {
		t.Fatalf("remove owned: %v", err)
	}
	if _, ok, err := pm.Get(ctx, entry.DriverID); err != nil || ok {
		t.Errorf("entry still present: ok=%v err=%v", ok, err)
	}
}

func TestRemoveMissingKey(t *testing.T) {
	rdb := testClient(t)
	pm := NewPresenceMirror(rdb)
	if err := pm.Remove(context.Background(), "mirror-test-absent", "s1"); err != nil {
		t.Errorf("remove: %v", err)
	}
}
