package storage

import "time"

// Slot is one bookable time at a location, as last seen.
type Slot struct {
	Location    string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// Change captures a slot appearing or disappearing between runs.
type Change struct {
	OccurredAt time.Time
	Location   string
	Date       string
	Time       string
	ChangeType string // added | removed
}

// LocationStats summarizes the currently open slots of one location.
type LocationStats struct {
	Location  string
	DateCount int
	SlotCount int
	Earliest  string // "YYYY-MM-DD HH:MM", empty when no slots
}
