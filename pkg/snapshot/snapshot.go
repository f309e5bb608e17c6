// Package snapshot merges raw page records into the canonical
// location -> date -> times structure and persists one file per run.
package snapshot

import (
	"fmt"
	"sort"

	"github.com/slotwatch/slotwatch/pkg/traverse"
)

// Snapshot maps a location to ISO dates to sorted, duplicate-free "HH:MM"
// times.
type Snapshot map[string]map[string][]string

// Locations returns the location names in lexical order.
func (s Snapshot) Locations() []string {
	out := make([]string, 0, len(s))
	for loc := range s {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Dates returns the dates recorded for loc in ascending order.
func (s Snapshot) Dates(loc string) []string {
	out := make([]string, 0, len(s[loc]))
	for d := range s[loc] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// SlotCount is the number of times across all locations and dates.
func (s Snapshot) SlotCount() int {
	n := 0
	for _, dates := range s {
		for _, times := range dates {
			n += len(times)
		}
	}
	return n
}

// Normalize merges every page of every location. Slots whose machine time
// does not parse are dropped and returned as issues. Every visited location
// and every extracted date is present even when nothing valid remains.
func Normalize(records []traverse.LocationRecord) (Snapshot, []error) {
	snap := Snapshot{}
	var issues []error

	sets := map[string]map[string]map[string]struct{}{}
	for _, rec := range records {
		if _, ok := sets[rec.Location]; !ok {
			sets[rec.Location] = map[string]map[string]struct{}{}
		}
		for _, page := range rec.Pages {
			for _, day := range page.Dates {
				date := day.ISODate()
				times, ok := sets[rec.Location][date]
				if !ok {
					times = map[string]struct{}{}
					sets[rec.Location][date] = times
				}
				for _, grp := range day.TimeGroups {
					for _, slot := range grp.Times {
						clock, err := slot.Clock()
						if err != nil {
							issues = append(issues, fmt.Errorf("%s %s %q: %w", rec.Location, date, slot.Display, err))
							continue
						}
						times[clock] = struct{}{}
					}
				}
			}
		}
	}

	for loc, dates := range sets {
		snap[loc] = map[string][]string{}
		for date, set := range dates {
			times := make([]string, 0, len(set))
			for t := range set {
				times = append(times, t)
			}
			// "HH:MM" sorts chronologically as a string
			sort.Strings(times)
			snap[loc][date] = times
		}
	}
	return snap, issues
}
