package extract

import (
	"time"
)

// TimeSlot is one bookable time as rendered. MachineTime carries the site's
// data-datetime attribute; Malformed is set when it could not be parsed.
type TimeSlot struct {
	Display     string `json:"display"`
	MachineTime string `json:"datetime"`
	Malformed   bool   `json:"malformed,omitempty"`
}

// Clock returns the slot time as 24-hour HH:MM.
func (s TimeSlot) Clock() (string, error) {
	return ParseMachineTime(s.MachineTime)
}

// TimeGroup is a block of slots within a day, e.g. "Morning (4)".
type TimeGroup struct {
	Title          string     `json:"title"`
	AvailableCount string     `json:"available_count"`
	Times          []TimeSlot `json:"times"`
}

// DateGroup is one in-window date column.
type DateGroup struct {
	DayName    string      `json:"day_name"`
	Label      string      `json:"full_date"`
	Date       time.Time   `json:"date"`
	TimeGroups []TimeGroup `json:"time_groups"`
}

// ISODate is the date in YYYY-MM-DD form.
func (d DateGroup) ISODate() string {
	return d.Date.Format("2006-01-02")
}

// SkippedRange summarizes date columns rejected by the window during one
// extraction call. First and Last are in page order.
type SkippedRange struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Count int    `json:"count"`
}

func (r *SkippedRange) add(label string) {
	if r.Count == 0 {
		r.First = label
	}
	r.Last = label
	r.Count++
}

func (r SkippedRange) Empty() bool {
	return r.Count == 0
}

// Result is everything extracted from one rendered page.
type Result struct {
	Dates   []DateGroup
	Skipped SkippedRange
}
