package model

import "time"

// PresenceEntry is the last accepted position of a connected driver.
type PresenceEntry struct {
	DriverID  string    `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SessionID string    `json:"session_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
