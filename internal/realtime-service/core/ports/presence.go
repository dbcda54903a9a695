package ports

import (
	"context"

	"gride/internal/realtime-service/core/domain/model"
)

// IPresenceRegistry is the in-process liveness cache of driver positions.
// It is safe for concurrent use.
type IPresenceRegistry interface {
	Upsert(entry model.PresenceEntry)
	// RemoveBySession drops every entry owned by sessionID and returns the
	// affected driver ids.
	RemoveBySession(sessionID string) []string
	Get(driverID string) (model.PresenceEntry, bool)
	List() []model.PresenceEntry
}

// IPresenceMirror copies registry changes to an external store for other
// processes to read. Failures never affect the registry.
type IPresenceMirror interface {
	Save(ctx context.Context, entry model.PresenceEntry) error
	// Remove deletes the driver's entry only while it still belongs to
	// sessionID, so a newer session on another process survives.
	Remove(ctx context.Context, driverID, sessionID string) error
	Get(ctx context.Context, driverID string) (model.PresenceEntry, bool, error)
}
