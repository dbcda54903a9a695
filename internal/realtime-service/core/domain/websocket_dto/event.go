package websocketdto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Inbound event names.
const (
	EventRegisterDriver = "register_driver"
	EventDriverLocation = "driver_location"
	EventJoinRideRoom   = "join_ride_room"
	EventJoinDriverRoom = "join_driver_room"
	EventRideCompleted  = "ride_completed"
)

// Outbound event names.
const (
	EventDriverPosition = "driver_position"
	EventNotification   = "notification"
)

// Event is one websocket frame in either direction.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type RegisterDriver struct {
	DriverID string `json:"driver_id" validate:"required,max=64"`
}

type DriverLocation struct {
	DriverID  string   `json:"driver_id" validate:"required,max=64"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	RideID    RoomID   `json:"ride_id,omitempty"`
}

type DriverPosition struct {
	DriverID  string    `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// RideCompleted echoes the ride id in the JSON form the client sent it.
type RideCompleted struct {
	RideID      json.RawMessage `json:"rideId"`
	CompletedAt time.Time       `json:"completedAt"`
}

type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomID is a ride id sent as a JSON string or number. An object carrying
// rideId or ride_id is accepted too.
type RoomID string

func (r *RoomID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RoomID(strings.TrimSpace(s))
		return nil
	case '{':
		var obj struct {
			RideID  *RoomID `json:"rideId"`
			RideID2 *RoomID `json:"ride_id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		switch {
		case obj.RideID != nil:
			*r = *obj.RideID
		case obj.RideID2 != nil:
			*r = *obj.RideID2
		default:
			*r = ""
		}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("room id must be a string or a number: %w", err)
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return err
		}
		*r = RoomID(n.String())
		return nil
	}
}

func (r RoomID) String() string { return string(r) }

// RoomToken returns the raw JSON value that carries the ride id in b: the
// rideId or ride_id member of an object, otherwise b itself.
func RoomToken(b json.RawMessage) json.RawMessage {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return b
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	if v, ok := obj["rideId"]; ok {
		return v
	}
	return obj["ride_id"]
}
