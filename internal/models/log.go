package models

import "time"

const (
	LogIn  = "in"
	LogOut = "out"
)

// LogEntry is a single check-in or check-out. Entries are never updated.
type LogEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	LocationID  *int64    `json:"locationId"`
	Type        string    `json:"type"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timestamp   time.Time `json:"timestamp"`
	PhotoBase64 *string   `json:"photoBase64,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
