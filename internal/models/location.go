package models

import "time"

// Owner kinds for a location.
const (
	OwnerUser    = "user"
	OwnerCompany = "company"
)

// DefaultProximityThreshold applies when a location is created without a radius.
const DefaultProximityThreshold = 100.0

type Location struct {
	ID                 int64     `json:"id"`
	OwnerType          string    `json:"ownerType"`
	OwnerID            int64     `json:"ownerId"`
	Name               string    `json:"name"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	ProximityThreshold float64   `json:"proximityThreshold"` // meter
	IsActive           bool      `json:"isActive"`
	OfficeHoursStart   *string   `json:"officeHoursStart,omitempty"` // "HH:MM"
	OfficeHoursEnd     *string   `json:"officeHoursEnd,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
