// Package extract turns one rendered appointment page into per-date,
// per-time-group slot records.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/slotwatch/slotwatch/pkg/window"
)

// Selector contract of the booking pages.
const (
	SelectorDateColumn = "div.DateTimeGrouping-Column"
	SelectorTimeGroup  = "div.DateTimeGrouping-Group"
	SelectorControl    = "div.DateTimeGrouping-Control"
	SelectorGroupTitle = ".group-title"
	SelectorGroupCount = ".group-number"
	SelectorTimeSlot   = "div.ServiceAppointmentDateTime"

	attrDateLabel   = "aria-label"
	attrMachineTime = "data-datetime"
)

// Extract walks the date columns of doc in page order. The window is resolved
// once per call, so edits to its descriptor apply from the next page on.
// Columns whose date is outside the window are only counted in
// Result.Skipped. Columns with unreadable labels are dropped and reported.
// Slots with an unreadable machine time are kept and flagged Malformed.
func Extract(doc *goquery.Document, location string, within window.Checker, rep Reporter) Result {
	if rep == nil {
		rep = Discard
	}
	within = window.Resolve(within)

	var res Result
	doc.Find(SelectorDateColumn).Each(func(_ int, col *goquery.Selection) {
		label, _ := col.Attr(attrDateLabel)
		dayName, dateText, date, err := ParseLabel(label)
		if err != nil {
			rep.LabelRejected(location, label, err)
			return
		}

		inWindow, err := within.Contains(date.Format(window.DateLayout))
		if err != nil {
			rep.LabelRejected(location, label, err)
			return
		}
		if !inWindow {
			res.Skipped.add(dateText)
			return
		}

		day := DateGroup{
			DayName:    dayName,
			Label:      dateText,
			Date:       date,
			TimeGroups: []TimeGroup{},
		}
		col.Find(SelectorTimeGroup).Each(func(_ int, grp *goquery.Selection) {
			day.TimeGroups = append(day.TimeGroups, extractGroup(location, day, grp, rep))
		})
		rep.DateDone(location, day)
		res.Dates = append(res.Dates, day)
	})

	return res
}

func extractGroup(location string, day DateGroup, grp *goquery.Selection, rep Reporter) TimeGroup {
	control := grp.Find(SelectorControl).First()
	tg := TimeGroup{
		Title:          strings.TrimSpace(control.Find(SelectorGroupTitle).First().Text()),
		AvailableCount: strings.TrimSpace(control.Find(SelectorGroupCount).First().Text()),
		Times:          []TimeSlot{},
	}

	grp.Find(SelectorTimeSlot).Each(func(_ int, el *goquery.Selection) {
		machine, _ := el.Attr(attrMachineTime)
		slot := TimeSlot{
			Display:     strings.TrimSpace(el.Text()),
			MachineTime: machine,
		}
		if _, err := slot.Clock(); err != nil {
			slot.Malformed = true
		}
		tg.Times = append(tg.Times, slot)
		rep.SlotFound(location, day, slot)
	})
	return tg
}
