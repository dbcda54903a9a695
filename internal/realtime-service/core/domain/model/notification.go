package model

import "time"

type Notification struct {
	ID        string    `json:"id"`
	DriverID  string    `json:"driver_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
