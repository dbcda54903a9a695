package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"gride/internal/auth"
	"gride/internal/mylogger"
	websocketdto "gride/internal/realtime-service/core/domain/websocket_dto"
	"gride/internal/realtime-service/core/myerrors"
	"gride/internal/realtime-service/core/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const DefaultLocationThrottle = time.Second

// Verifier resolves the identity behind a handshake request.
type Verifier interface {
	FromRequest(r *http.Request) (auth.Identity, error)
}

type Options struct {
	// LocationThrottle is the minimum interval between accepted location
	// updates of one session. Zero means DefaultLocationThrottle.
	LocationThrottle time.Duration
	// AllowedOrigins restricts browser handshakes; empty or "*" allows all.
	AllowedOrigins []string
	// Now is the clock used for throttling and timestamps.
	Now func() time.Time
}

// Gateway owns every live session and the rooms they joined. It is built
// once per process and passed to whoever needs to reach drivers.
type Gateway struct {
	mylog    mylogger.Logger
	verifier Verifier
	presence ports.IPresenceRegistry
	validate *validator.Validate
	upgrader websocket.Upgrader
	throttle time.Duration
	now      func() time.Time
	handlers map[string]EventHandle

	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
}

var _ ports.INotifier = (*Gateway)(nil)

func NewGateway(log mylogger.Logger, verifier Verifier, presence ports.IPresenceRegistry, opts Options) *Gateway {
	if opts.LocationThrottle <= 0 {
		opts.LocationThrottle = DefaultLocationThrottle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := &Gateway{
		mylog:    log,
		verifier: verifier,
		presence: presence,
		validate: validator.New(),
		throttle: opts.LocationThrottle,
		now:      opts.Now,
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
	}
	g.setupEventHandlers()
	return g
}

// ServeWS verifies the bearer credential and upgrades the connection. A bad
// credential is answered with 401 and the connection never opens.
func (g *Gateway) ServeWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := g.mylog.Action("ws_handshake")

		identity, err := g.verifier.FromRequest(r)
		if err != nil {
			handshakesTotal.WithLabelValues("unauthorized").Inc()
			log.Warn("handshake rejected", "remote", r.RemoteAddr, "error", err.Error())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"kind":    "Unauthorized",
				"error":   "Invalid or expired token",
			})
			return
		}

		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			handshakesTotal.WithLabelValues("upgrade_failed").Inc()
			log.Error("cannot upgrade", err)
			return
		}
		handshakesTotal.WithLabelValues("ok").Inc()

		s := newSession(uuid.NewString(), identity, conn)
		g.addSession(s)
		log.Info("session opened", "session_id", s.id, "subject_id", identity.SubjectID, "role", identity.Role)

		go s.writePump()
		g.readPump(s)
	}
}

func (g *Gateway) readPump(s *Session) {
	defer g.disconnect(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				g.mylog.Action("ws_read").Debug("connection closed unexpectedly", "session_id", s.id, "error", err.Error())
			}
			return
		}

		var event websocketdto.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			eventsTotal.WithLabelValues("malformed", "dropped").Inc()
			g.mylog.Action("ws_read").Debug("dropping malformed frame", "session_id", s.id)
			continue
		}
		g.routeEvent(s, event)
	}
}

func (g *Gateway) routeEvent(s *Session, event websocketdto.Event) {
	handler, ok := g.handlers[event.Type]
	if !ok {
		eventsTotal.WithLabelValues("unknown", "dropped").Inc()
		g.mylog.Action("ws_event").Debug("event dropped", "session_id", s.id, "type", event.Type, "reason", myerrors.ErrUnknownEvent.Error())
		return
	}

	if err := handler(s, event); err != nil {
		eventsTotal.WithLabelValues(event.Type, "dropped").Inc()
		g.mylog.Action(event.Type).Debug("event dropped", "session_id", s.id, "subject_id", s.identity.SubjectID, "reason", err.Error())
		return
	}
	eventsTotal.WithLabelValues(event.Type, "accepted").Inc()
}

// NotifyDriver hands a notification to every session in the driver's room.
// It is safe to call on a nil Gateway and never fails.
func (g *Gateway) NotifyDriver(ctx context.Context, driverID, title, message, notificationType string) int {
	if g == nil || driverID == "" {
		return 0
	}
	return g.Broadcast(DriverRoom(driverID), websocketdto.EventNotification, websocketdto.Notification{
		Title:     title,
		Message:   message,
		Type:      notificationType,
		CreatedAt: g.now().UTC(),
	})
}

// Broadcast encodes the event once and queues it on every member of room
// without waiting. Members with a full buffer miss the event.
func (g *Gateway) Broadcast(room, eventType string, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		g.mylog.Action("Broadcast").Error("cannot encode payload", err, "room", room, "type", eventType)
		return 0
	}
	msg, err := json.Marshal(websocketdto.Event{Type: eventType, Data: data})
	if err != nil {
		g.mylog.Action("Broadcast").Error("cannot encode event", err, "room", room, "type", eventType)
		return 0
	}

	g.mu.RLock()
	members := make([]*Session, 0, len(g.rooms[room]))
	for _, s := range g.rooms[room] {
		members = append(members, s)
	}
	g.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if s.send(msg) {
			delivered++
		} else {
			droppedTotal.Inc()
		}
	}
	return delivered
}

// SessionCount returns the number of open sessions.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// RoomSize returns the number of sessions joined to room.
func (g *Gateway) RoomSize(room string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms[room])
}

// Close disconnects every session.
func (g *Gateway) Close() {
	g.mu.RLock()
	all := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		all = append(all, s)
	}
	g.mu.RUnlock()

	for _, s := range all {
		s.close()
		_ = s.conn.Close()
	}
}

func (g *Gateway) addSession(s *Session) {
	g.mu.Lock()
	g.sessions[s.id] = s
	n := len(g.sessions)
	g.mu.Unlock()
	sessionsGauge.Set(float64(n))
}

func (g *Gateway) join(s *Session, room string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, open := g.sessions[s.id]; !open {
		return
	}
	members, ok := g.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		g.rooms[room] = members
	}
	members[s.id] = s
	s.rooms[room] = struct{}{}
}

// evictRoom removes every member from room; the room no longer exists afterwards.
func (g *Gateway) evictRoom(room string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	members := g.rooms[room]
	for _, s := range members {
		delete(s.rooms, room)
	}
	delete(g.rooms, room)
	return len(members)
}

// disconnect is the terminal transition of a session: it leaves every room,
// drops the presence entries it owns and stops the writer.
func (g *Gateway) disconnect(s *Session) {
	s.close()

	g.mu.Lock()
	for room := range s.rooms {
		if members, ok := g.rooms[room]; ok {
			delete(members, s.id)
			if len(members) == 0 {
				delete(g.rooms, room)
			}
		}
	}
	s.rooms = make(map[string]struct{})
	delete(g.sessions, s.id)
	n := len(g.sessions)
	g.mu.Unlock()

	removed := g.presence.RemoveBySession(s.id)
	sessionsGauge.Set(float64(n))
	_ = s.conn.Close()

	g.mylog.Action("ws_disconnect").Info("session closed", "session_id", s.id, "subject_id", s.identity.SubjectID, "presence_removed", len(removed))
}

func DriverRoom(driverID string) string { return "driver:" + driverID }
func RideRoom(rideID string) string { return "ride:" + rideID }

func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowAll || origin == "" || set[origin]
	}
}
