package snapshot

import (
	"fmt"
	"sort"
	"time"
)

// Appointment is a single bookable time seen in some run.
type Appointment struct {
	Location string
	Date     string
	Time     string
	SeenAt   time.Time
}

// At combines Date and Time.
func (a Appointment) At() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", a.Date+" "+a.Time)
}

// Analysis summarizes a History.
type Analysis struct {
	Locations []string
	Dates     []string
	Earliest  *Appointment
	Issues    []error
}

// Analyze lists every location and date seen across h and finds the
// earliest appointment any run offered. Ties keep the earliest run.
func Analyze(h *History) Analysis {
	var a Analysis
	locs := map[string]struct{}{}
	dates := map[string]struct{}{}
	var earliest time.Time

	for _, run := range h.Runs {
		for _, loc := range run.Snapshot.Locations() {
			locs[loc] = struct{}{}
			for _, date := range run.Snapshot.Dates(loc) {
				dates[date] = struct{}{}
				times := run.Snapshot[loc][date]
				if len(times) == 0 {
					continue
				}
				cand := Appointment{Location: loc, Date: date, Time: times[0], SeenAt: run.At}
				at, err := cand.At()
				if err != nil {
					a.Issues = append(a.Issues, fmt.Errorf("%s: %w", run.Path, err))
					continue
				}
				if a.Earliest == nil || at.Before(earliest) {
					c := cand
					a.Earliest = &c
					earliest = at
				}
			}
		}
	}

	a.Locations = sortedKeys(locs)
	a.Dates = sortedKeys(dates)
	return a
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
