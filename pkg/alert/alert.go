// Package alert matches a snapshot against the time window and exclusion
// list and turns matches into operator notifications.
package alert

import (
	"fmt"

	"github.com/slotwatch/slotwatch/pkg/lists"
	"github.com/slotwatch/slotwatch/pkg/snapshot"
	"github.com/slotwatch/slotwatch/pkg/window"
)

// Event is one location/date with at least one in-window time.
type Event struct {
	Location string   `json:"location"`
	Date     string   `json:"date"`
	DayName  string   `json:"day_name"`
	Times    []string `json:"times"`
}

// Match returns an event for every non-excluded location and every date that
// is inside the window and has times. Locations are visited in lexical order
// and dates ascending, so the first event of a location is its earliest
// date. Dates the window cannot check are returned as issues.
func Match(snap snapshot.Snapshot, within window.Checker, excl lists.Set) ([]Event, []error) {
	var events []Event
	var issues []error

	for _, loc := range snap.Locations() {
		if excl.Has(loc) {
			continue
		}
		for _, date := range snap.Dates(loc) {
			ok, err := within.Contains(date)
			if err != nil {
				issues = append(issues, fmt.Errorf("%s: %w", loc, err))
				continue
			}
			times := snap[loc][date]
			if !ok || len(times) == 0 {
				continue
			}
			d, _ := window.ParseDate(date)
			events = append(events, Event{
				Location: loc,
				Date:     date,
				DayName:  d.Weekday().String(),
				Times:    append([]string(nil), times...),
			})
		}
	}
	return events, issues
}

// FirstPerLocation keeps the first event of each location.
func FirstPerLocation(events []Event) []Event {
	seen := map[string]struct{}{}
	var out []Event
	for _, e := range events {
		if _, ok := seen[e.Location]; ok {
			continue
		}
		seen[e.Location] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Locations returns the distinct locations of events in order of first
// appearance.
func Locations(events []Event) []string {
	var out []string
	for _, e := range FirstPerLocation(events) {
		out = append(out, e.Location)
	}
	return out
}
