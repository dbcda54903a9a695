package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gride/internal/mylogger"
	"gride/internal/realtime-service/core/domain/model"
	"gride/internal/realtime-service/core/ports"
)

const mirrorTimeout = 2 * time.Second

// PresenceRegistry keeps one entry per driver. The optional mirror is
// written after each mutation, outside the lock.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]model.PresenceEntry
	mirror  ports.IPresenceMirror
	mylog   mylogger.Logger
}

var _ ports.IPresenceRegistry = (*PresenceRegistry)(nil)

func NewPresenceRegistry(log mylogger.Logger, mirror ports.IPresenceMirror) *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[string]model.PresenceEntry),
		mirror:  mirror,
		mylog:   log,
	}
}

func (pr *PresenceRegistry) Upsert(entry model.PresenceEntry) {
	pr.mu.Lock()
	pr.entries[entry.DriverID] = entry
	size := len(pr.entries)
	pr.mu.Unlock()

	presenceDrivers.Set(float64(size))

	if pr.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := pr.mirror.Save(ctx, entry); err != nil {
			pr.mylog.Action("PresenceUpsert").Warn("cannot mirror presence", "driver_id", entry.DriverID, "error", err.Error())
		}
	}
}

func (pr *PresenceRegistry) RemoveBySession(sessionID string) []string {
	pr.mu.Lock()
	var removed []string
	for id, entry := range pr.entries {
		if entry.SessionID == sessionID {
			delete(pr.entries, id)
			removed = append(removed, id)
		}
	}
	size := len(pr.entries)
	pr.mu.Unlock()

	presenceDrivers.Set(float64(size))

	if pr.mirror != nil && len(removed) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		for _, id := range removed {
			if err := pr.mirror.Remove(ctx, id, sessionID); err != nil {
				pr.mylog.Action("PresenceRemove").Warn("cannot mirror presence removal", "driver_id", id, "error", err.Error())
			}
		}
	}
	return removed
}

func (pr *PresenceRegistry) Get(driverID string) (model.PresenceEntry, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	entry, ok := pr.entries[driverID]
	return entry, ok
}

// List returns all entries ordered by driver id.
func (pr *PresenceRegistry) List() []model.PresenceEntry {
	pr.mu.RLock()
	out := make([]model.PresenceEntry, 0, len(pr.entries))
	for _, entry := range pr.entries {
		out = append(out, entry)
	}
	pr.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}
