package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gride/internal/realtime-service/core/domain/model"
	"gride/internal/realtime-service/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	namespace = "gride:presence"
	// entries of crashed processes expire on their own
	entryTTL = 2 * time.Minute
)

// PresenceMirror stores each presence entry as a JSON string under
// "gride:presence:<driver id>".
type PresenceMirror struct {
	client redis.UniversalClient
}

var _ ports.IPresenceMirror = (*PresenceMirror)(nil)

func NewPresenceMirror(client redis.UniversalClient) *PresenceMirror {
	return &PresenceMirror{client: client}
}

// Connect opens a redis client and verifies it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (pm *PresenceMirror) Save(ctx context.Context, entry model.PresenceEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return pm.client.Set(ctx, key(entry.DriverID), body, entryTTL).Err()
}

// removeOwned deletes KEYS[1] when its JSON session_id equals ARGV[1].
var removeOwned = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
	return 0
end
local ok, entry = pcall(cjson.decode, raw)
if ok and entry["session_id"] == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (pm *PresenceMirror) Remove(ctx context.Context, driverID, sessionID string) error {
	return removeOwned.Run(ctx, pm.client, []string{key(driverID)}, sessionID).Err()
}

// Get reads one mirrored entry, as another process would.
func (pm *PresenceMirror) Get(ctx context.Context, driverID string) (model.PresenceEntry, bool, error) {
	raw, err := pm.client.Get(ctx, key(driverID)).Bytes()
	if err == redis.Nil {
		return model.PresenceEntry{}, false, nil
	}
	if err != nil {
		return model.PresenceEntry{}, false, err
	}
	var entry model.PresenceEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return model.PresenceEntry{}, false, err
	}
	return entry, true, nil
}

func key(driverID string) string {
	return namespace + ":" + driverID
}
