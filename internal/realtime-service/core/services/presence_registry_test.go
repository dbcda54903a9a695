package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"gride/internal/mylogger"
	"gride/internal/realtime-service/core/domain/model"
)

func quietLogger() mylogger.Logger {
	return mylogger.NewWithWriter(io.Discard, mylogger.LevelError)
}

type fakeMirror struct {
	mu      sync.Mutex
	saved   map[string]model.PresenceEntry
	removed []string
	err     error
}

func (m *fakeMirror) Save(ctx context.Context, entry model.PresenceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]model.PresenceEntry)
	}
	m.saved[entry.DriverID] = entry
	return m.err
}

func (m *fakeMirror) Remove(ctx context.Context, driverID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, driverID)
	if e, ok := m.saved[driverID]; ok && e.SessionID == sessionID {
		delete(m.saved, driverID)
	}
	return m.err
}

func (m *fakeMirror) Get(ctx context.Context, driverID string) (model.PresenceEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.saved[driverID]
	return e, ok, m.err
}

func TestUpsertOverwrites(t *testing.T) {
	pr := NewPresenceRegistry(quietLogger(), nil)
	now := time.Now()

	pr.Upsert(model.PresenceEntry{DriverID: "d1", Latitude: 1, Longitude: 1, SessionID: "s1", UpdatedAt: now})
	pr.Upsert(model.PresenceEntry{DriverID: "d1", Latitude: 2, Longitude: 3, SessionID: "s1", UpdatedAt: now.Add(time.Second)})

	list := pr.List()
	if len(list) != 1 {
		t.Fatalf("entries = %d, want 1", len(list))
	}
	if list[0].Latitude != 2 || list[0].Longitude != 3 {
		t.Errorf("entry = %+v", list[0])
	}
}

func TestRemoveBySessionOnlyTouchesOwnedEntries(t *testing.T) {
	mirror := &fakeMirror{}
	pr := NewPresenceRegistry(quietLogger(), mirror)

	pr.Upsert(model.PresenceEntry{DriverID: "d1", SessionID: "s1"})
	pr.Upsert(model.PresenceEntry{DriverID: "d2", SessionID: "s2"})

	removed := pr.RemoveBySession("s1")
	if len(removed) != 1 || removed[0] != "d1" {
		t.Fatalf("removed = %v", removed)
	}
	if _, ok := pr.Get("d1"); ok {
		t.Error("d1 still present")
	}
	if _, ok := pr.Get("d2"); !ok {
		t.Error("d2 removed")
	}
	if len(mirror.removed) != 1 || mirror.removed[0] != "d1" {
		t.Errorf("mirror removals = %v", mirror.removed)
	}
	if got := pr.RemoveBySession("unknown"); len(got) != 0 {
		t.Errorf("unknown session removed %v", got)
	}
}

func TestRemoveBySessionKeepsNewerMirroredSession(t *testing.T) {
	mirror := &fakeMirror{}
	first := NewPresenceRegistry(quietLogger(), mirror)
	second := NewPresenceRegistry(quietLogger(), mirror)

	first.Upsert(model.PresenceEntry{DriverID: "d1", SessionID: "s1"})
	second.Upsert(model.PresenceEntry{DriverID: "d1", SessionID: "s2"})
	first.RemoveBySession("s1")

	got, ok, _ := mirror.Get(context.Background(), "d1")
	if !ok || got.SessionID != "s2" {
		t.Fatalf("mirror entry = %+v, %v, want session s2", got, ok)
	}

	second.RemoveBySession("s2")
	if _, ok, _ := mirror.Get(context.Background(), "d1"); ok {
		t.Error("mirror entry survived its own session")
	}
}

func TestMirrorFailureDoesNotAffectRegistry(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("redis down")}
	pr := NewPresenceRegistry(quietLogger(), mirror)

	pr.Upsert(model.PresenceEntry{DriverID: "d1", SessionID: "s1"})
	if _, ok := pr.Get("d1"); !ok {
		t.Fatal("entry missing after mirror failure")
	}
	if _, ok := mirror.saved["d1"]; !ok {
		t.Error("mirror not called")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	pr := NewPresenceRegistry(quietLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("d%d", i%10)
			session := fmt.Sprintf("s%d", i%10)
			pr.Upsert(model.PresenceEntry{DriverID: id, SessionID: session})
			pr.List()
			if i%3 == 0 {
				pr.RemoveBySession(session)
			}
		}()
	}
	wg.Wait()

	if n := len(pr.List()); n > 10 {
		t.Errorf("entries = %d, want at most 10", n)
	}
}
