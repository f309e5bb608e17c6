package extract

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/slotwatch/slotwatch/internal/utils"
)

// Reporter observes extraction as it happens, so operators see availability
// before a run finishes.
type Reporter interface {
	SlotFound(location string, day DateGroup, slot TimeSlot)
	DateDone(location string, day DateGroup)
	LabelRejected(location, label string, err error)
}

type discard struct{}

func (discard) SlotFound(string, DateGroup, TimeSlot) {}
func (discard) DateDone(string, DateGroup)            {}
func (discard) LabelRejected(string, string, error)   {}

// Discard ignores every event.
var Discard Reporter = discard{}

// Console narrates slots as "Location: Day, Mon 2, 2006 - 9:00 AM 9:15 AM",
// one line per location and date.
type Console struct {
	Out io.Writer
	Log logrus.FieldLogger

	open bool
}

var _ Reporter = (*Console)(nil)

func NewConsole(out io.Writer, log logrus.FieldLogger) *Console {
	return &Console{Out: out, Log: utils.OrDiscard(log)}
}

func (c *Console) SlotFound(location string, day DateGroup, slot TimeSlot) {
	if !c.open {
		fmt.Fprintf(c.Out, "%s: %s, %s -", location, day.DayName, day.Label)
		c.open = true
	}
	fmt.Fprintf(c.Out, " %s", slot.Display)
}

func (c *Console) DateDone(string, DateGroup) {
	if c.open {
		fmt.Fprintln(c.Out)
		c.open = false
	}
}

func (c *Console) LabelRejected(location, label string, err error) {
	c.Log.Warnf("%s: could not parse date from %q: %v", location, label, err)
}
