package alert

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/slotwatch/slotwatch/internal/utils"
	"github.com/slotwatch/slotwatch/pkg/notify"
)

// ReportOptions controls the hints printed with each alert.
type ReportOptions struct {
	// MapsTemplate is a URL with one %s for the location, empty to omit.
	MapsTemplate string
	// Program is the command name used in hints.
	Program string
}

// Report prints the first event of each location with follow-up hints.
// Nothing is printed when there are no events.
func Report(w io.Writer, events []Event, opts ReportOptions) {
	first := FirstPerLocation(events)
	if len(first) == 0 {
		return
	}
	prog := opts.Program
	if prog == "" {
		prog = "slotwatch"
	}

	fmt.Fprintln(w, "\n=== ALERT: Available Appointments Found ===")
	for _, e := range first {
		fmt.Fprintf(w, "\n%s on %s, %s at %s\n", e.Location, e.DayName, e.Date, strings.Join(e.Times, ", "))
		if opts.MapsTemplate != "" {
			fmt.Fprintln(w, fmt.Sprintf(opts.MapsTemplate, url.QueryEscape(e.Location)))
		}
		fmt.Fprintln(w, "To blacklist this location:")
		fmt.Fprintf(w, "  %s blacklist %s\n", prog, shellQuote(e.Location))
		fmt.Fprintf(w, "To make the time window close before %s:\n", e.Date)
		fmt.Fprintf(w, "  %s window set --end %s\n", prog, e.Date)
	}
}

// Dispatch opens targetURL once, then the endpoint once per distinct
// location. endpoint holds one %s for the location. Failures are logged and
// never stop the remaining notifications. It returns how many notifications
// were delivered.
func Dispatch(ctx context.Context, events []Event, n notify.Notifier, targetURL, endpoint string, l logrus.FieldLogger) int {
	locs := Locations(events)
	if len(locs) == 0 {
		return 0
	}
	log := utils.OrDiscard(l)

	sent := 0
	open := func(u string) {
		if err := n.Open(ctx, u); err != nil {
			log.Errorf("Error opening %s: %v", u, err)
			return
		}
		sent++
	}

	if targetURL != "" {
		open(targetURL)
	}
	for _, loc := range locs {
		open(fmt.Sprintf(endpoint, url.QueryEscape(loc)))
	}
	return sent
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
