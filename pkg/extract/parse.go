package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Single-digit fields also accept zero padding, so both "4/1/2025 9:05:00 AM"
// and "04/01/2025 09:05:00 AM" parse.
const machineTimeLayout = "1/2/2006 3:04:05 PM"

var (
	ErrLabel       = errors.New("unrecognized date label")
	ErrMachineTime = errors.New("unrecognized machine time")
)

// The column aria-label looks like "<p>Thursday</p><p>Apr 10, 2025</p>".
var labelExpr = regexp.MustCompile(`<p>([A-Za-z]+)</p>\s*<p>([A-Za-z]+ \d{1,2}, \d{4})</p>`)

var labelDateLayouts = []string{"Jan 2, 2006", "January 2, 2006"}

// ParseLabel splits a date-column aria-label into day name, date text and date.
func ParseLabel(label string) (dayName, dateText string, date time.Time, err error) {
	m := labelExpr.FindStringSubmatch(label)
	if m == nil {
		return "", "", time.Time{}, fmt.Errorf("%w: %q", ErrLabel, label)
	}
	dayName, dateText = m[1], m[2]
	for _, layout := range labelDateLayouts {
		if date, err = time.Parse(layout, dateText); err == nil {
			return dayName, dateText, date, nil
		}
	}
	return "", "", time.Time{}, fmt.Errorf("%w: %q", ErrLabel, label)
}

// ParseMachineTime converts "04/10/2025 09:15:00 AM" into "09:15".
func ParseMachineTime(s string) (string, error) {
	t, err := time.Parse(machineTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMachineTime, s)
	}
	return t.Format("15:04"), nil
}
