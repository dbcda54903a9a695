package ws

import (
	"encoding/json"
	"fmt"

	"gride/internal/realtime-service/core/domain/model"
	websocketdto "gride/internal/realtime-service/core/domain/websocket_dto"
	"gride/internal/realtime-service/core/myerrors"
)

// EventHandle processes one inbound event. A returned error only means the
// event was dropped; nothing is sent back to the peer.
type EventHandle func(s *Session, e websocketdto.Event) error

func (g *Gateway) setupEventHandlers() {
	g.handlers = map[string]EventHandle{
		websocketdto.EventRegisterDriver: g.registerDriver,
		websocketdto.EventDriverLocation: g.driverLocation,
		websocketdto.EventJoinRideRoom:   g.joinRideRoom,
		websocketdto.EventJoinDriverRoom: g.joinRideRoom,
		websocketdto.EventRideCompleted:  g.rideCompleted,
	}
}

// registerDriver joins the caller's personal room when the claimed id is
// the authenticated driver.
func (g *Gateway) registerDriver(s *Session, e websocketdto.Event) error {
	var req websocketdto.RegisterDriver
	if err := g.decode(e.Data, &req); err != nil {
		return err
	}
	if !s.identity.IsDriver() || req.DriverID != s.identity.SubjectID {
		return myerrors.ErrIdentity
	}

	g.join(s, DriverRoom(req.DriverID))
	g.mylog.Action("register_driver").Info("driver registered", "session_id", s.id, "driver_id", req.DriverID)
	return nil
}

func (g *Gateway) driverLocation(s *Session, e websocketdto.Event) error {
	var req websocketdto.DriverLocation
	if err := g.decode(e.Data, &req); err != nil {
		return err
	}
	if req.DriverID != s.identity.SubjectID {
		return myerrors.ErrIdentity
	}

	now := g.now()
	if !s.lastLocationAt.IsZero() && now.Sub(s.lastLocationAt) < g.throttle {
		return myerrors.ErrThrottled
	}
	s.lastLocationAt = now

	g.presence.Upsert(model.PresenceEntry{
		DriverID:  req.DriverID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		SessionID: s.id,
		UpdatedAt: now.UTC(),
	})

	if req.RideID != "" {
		g.Broadcast(RideRoom(req.RideID.String()), websocketdto.EventDriverPosition, websocketdto.DriverPosition{
			DriverID:  req.DriverID,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Timestamp: now.UTC(),
		})
	}
	return nil
}

// joinRideRoom serves both join_ride_room and join_driver_room. Any
// authenticated session may join a ride room it knows the id of.
func (g *Gateway) joinRideRoom(s *Session, e websocketdto.Event) error {
	rideID, err := decodeRoomID(e.Data)
	if err != nil {
		return err
	}
	g.join(s, RideRoom(rideID))
	return nil
}

func (g *Gateway) rideCompleted(s *Session, e websocketdto.Event) error {
	rideID, err := decodeRoomID(e.Data)
	if err != nil {
		return err
	}

	room := RideRoom(rideID)
	g.Broadcast(room, websocketdto.EventRideCompleted, websocketdto.RideCompleted{
		RideID:      websocketdto.RoomToken(e.Data),
		CompletedAt: g.now().UTC(),
	})
	evicted := g.evictRoom(room)
	g.mylog.Action("ride_completed").Info("ride room closed", "ride_id", rideID, "sessions", evicted, "by", s.identity.SubjectID)
	return nil
}

func (g *Gateway) decode(data json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}
	if err := g.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}
	return nil
}

func decodeRoomID(data json.RawMessage) (string, error) {
	var id websocketdto.RoomID
	if err := json.Unmarshal(data, &id); err != nil {
		return "", fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: ride id is required", myerrors.ErrValidation)
	}
	return id.String(), nil
}
