package model

import (
	"math"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is finite and in range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Trigger names what produced a snapshot.
type Trigger string

const (
	TriggerTick     Trigger = "tick"
	TriggerLocation Trigger = "location"
	TriggerLaunch   Trigger = "launch"
	TriggerRequest  Trigger = "request"
)

// Snapshot is the input to one activation pass.
type Snapshot struct {
	Now time.Time

	// Location is nil when unknown; location rules then never match
	Location *Coordinate

	// LaunchedApp is set only for snapshots produced by an app launch
	LaunchedApp string

	Trigger Trigger
}

// UsageRecord holds the launch counter for one app.
type UsageRecord struct {
	AppRef     string    `json:"app_ref"`
	UsageCount int       `json:"usage_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}
