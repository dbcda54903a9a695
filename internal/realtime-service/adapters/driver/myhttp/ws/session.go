package ws

import (
	"sync"
	"time"

	"gride/internal/auth"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	egressSize     = 64
)

// Session is one authenticated websocket connection. Inbound frames are
// handled on the reader goroutine in arrival order; outbound frames go
// through egress to the writer goroutine.
type Session struct {
	id       string
	identity auth.Identity
	conn     *websocket.Conn
	egress   chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// guarded by Gateway.mu
	rooms map[string]struct{}

	// only touched by the reader goroutine
	lastLocationAt time.Time
}

func newSession(id string, identity auth.Identity, conn *websocket.Conn) *Session {
	return &Session{
		id:       id,
		identity: identity,
		conn:     conn,
		egress:   make(chan []byte, egressSize),
		done:     make(chan struct{}),
		rooms:    make(map[string]struct{}),
	}
}

// send queues msg without blocking. It reports false when the session is
// closed or its buffer is full.
func (s *Session) send(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.egress <- msg:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-s.egress:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
