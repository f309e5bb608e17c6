package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwatch/slotwatch/pkg/window"
)

func column(label string, groups ...string) string {
	return fmt.Sprintf(`<div class="DateTimeGrouping-Column" aria-label="%s">%s</div>`, label, strings.Join(groups, ""))
}

func label(day, date string) string {
	return fmt.Sprintf("&lt;p&gt;%s&lt;/p&gt;&lt;p&gt;%s&lt;/p&gt;", day, date)
}

func group(title, count string, slots ...string) string {
	return fmt.Sprintf(`<div class="DateTimeGrouping-Group">
  <div class="DateTimeGrouping-Control"><span class="group-title">%s</span><span class="group-number">%s</span></div>
  %s
</div>`, title, count, strings.Join(slots, ""))
}

func slot(display, machine string) string {
	return fmt.Sprintf(`<div class="ServiceAppointmentDateTime" data-datetime="%s"> %s </div>`, machine, display)
}

func page(t *testing.T, columns ...string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + strings.Join(columns, "") + "</body></html>"))
	require.NoError(t, err)
	return doc
}

func aprilWindow(t *testing.T) window.Window {
	t.Helper()
	w, err := window.New(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return w
}

type recorder struct {
	slots    []string
	done     []string
	rejected []string
}

func (r *recorder) SlotFound(loc string, day DateGroup, s TimeSlot) {
	r.slots = append(r.slots, loc+"|"+day.ISODate()+"|"+s.Display)
}
func (r *recorder) DateDone(loc string, day DateGroup) {
	r.done = append(r.done, loc+"|"+day.ISODate())
}
func (r *recorder) LabelRejected(loc, label string, _ error) {
	r.rejected = append(r.rejected, loc+"|"+label)
}

func TestParseLabel(t *testing.T) {
	day, text, date, err := ParseLabel("<p>Thursday</p><p>Apr 10, 2025</p>")
	require.NoError(t, err)
	assert.Equal(t, "Thursday", day)
	assert.Equal(t, "Apr 10, 2025", text)
	assert.Equal(t, time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC), date)

	_, _, date, err = ParseLabel("<p>Tuesday</p><p>September 2, 2025</p>")
	require.NoError(t, err)
	assert.Equal(t, time.September, date.Month())

	for _, bad := range []string{"", "Thursday Apr 10, 2025", "<p>Thursday</p><p>Foo 10, 2025</p>", "<p>Thursday</p><p>Apr 40, 2025</p>"} {
		_, _, _, err := ParseLabel(bad)
		assert.ErrorIs(t, err, ErrLabel, bad)
	}
}

func TestParseMachineTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"04/10/2025 09:15:00 AM", "09:15"},
		{"04/10/2025 12:00:00 PM", "12:00"},
		{"04/10/2025 12:30:00 AM", "00:30"},
		{"04/10/2025 01:45:00 PM", "13:45"},
		{"4/1/2025 9:05:00 AM", "09:05"},
	}
	for _, tt := range tests {
		got, err := ParseMachineTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "09:15", "2025-04-10T09:15:00", "04/10/2025 13:15:00 PM"} {
		_, err := ParseMachineTime(bad)
		assert.ErrorIs(t, err, ErrMachineTime, bad)
	}
}

func TestExtractCollectsInWindowDates(t *testing.T) {
	doc := page(t,
		column(label("Thursday", "Apr 10, 2025"),
			group("Morning", "2",
				slot("9:00 AM", "04/10/2025 09:00:00 AM"),
				slot("9:15 AM", "04/10/2025 09:15:00 AM")),
			group("Afternoon", "1",
				slot("1:30 PM", "04/10/2025 01:30:00 PM"))),
		column(label("Friday", "Apr 11, 2025"),
			group("Morning", "1",
				slot("10:00 AM", "04/11/2025 10:00:00 AM"))),
	)

	rec := &recorder{}
	res := Extract(doc, "Boston", aprilWindow(t), rec)

	require.Len(t, res.Dates, 2)
	first := res.Dates[0]
	assert.Equal(t, "Thursday", first.DayName)
	assert.Equal(t, "2025-04-10", first.ISODate())
	require.Len(t, first.TimeGroups, 2)
	assert.Equal(t, "Morning", first.TimeGroups[0].Title)
	assert.Equal(t, "2", first.TimeGroups[0].AvailableCount)
	assert.Equal(t, TimeSlot{Display: "9:15 AM", MachineTime: "04/10/2025 09:15:00 AM"}, first.TimeGroups[0].Times[1])
	assert.Equal(t, "Afternoon", first.TimeGroups[1].Title)
	assert.True(t, res.Skipped.Empty())

	assert.Equal(t, []string{
		"Boston|2025-04-10|9:00 AM",
		"Boston|2025-04-10|9:15 AM",
		"Boston|2025-04-10|1:30 PM",
		"Boston|2025-04-11|10:00 AM",
	}, rec.slots)
	assert.Equal(t, []string{"Boston|2025-04-10", "Boston|2025-04-11"}, rec.done)
}

func TestExtractSkipsOutOfWindowColumns(t *testing.T) {
	doc := page(t,
		column(label("Monday", "Mar 31, 2025"), group("Morning", "1", slot("9:00 AM", "03/31/2025 09:00:00 AM"))),
		column(label("Tuesday", "Apr 1, 2025"), group("Morning", "1", slot("9:00 AM", "04/01/2025 09:00:00 AM"))),
		column(label("Tuesday", "Apr 15, 2025"), group("Morning", "1", slot("9:00 AM", "04/15/2025 09:00:00 AM"))),
		column(label("Wednesday", "Apr 16, 2025")),
	)

	rec := &recorder{}
	res := Extract(doc, "Boston", aprilWindow(t), rec)

	require.Len(t, res.Dates, 1)
	assert.Equal(t, "2025-04-01", res.Dates[0].ISODate())
	assert.Equal(t, SkippedRange{First: "Mar 31, 2025", Last: "Apr 16, 2025", Count: 3}, res.Skipped)
	assert.Equal(t, []string{"Boston|2025-04-01|9:00 AM"}, rec.slots)
}

func TestExtractDropsUnparsableLabels(t *testing.T) {
	doc := page(t,
		column("Someday", group("Morning", "1", slot("9:00 AM", "04/02/2025 09:00:00 AM"))),
		column(label("Wednesday", "Apr 2, 2025"), group("Morning", "1", slot("9:00 AM", "04/02/2025 09:00:00 AM"))),
	)

	rec := &recorder{}
	res := Extract(doc, "Boston", aprilWindow(t), rec)

	require.Len(t, res.Dates, 1)
	assert.Equal(t, []string{"Boston|Someday"}, rec.rejected)
}

func TestExtractFlagsMalformedMachineTime(t *testing.T) {
	doc := page(t,
		column(label("Wednesday", "Apr 2, 2025"),
			group("Morning", "2",
				slot("9:00 AM", "garbage"),
				slot("9:30 AM", "04/02/2025 09:30:00 AM"))),
	)

	res := Extract(doc, "Boston", aprilWindow(t), nil)

	times := res.Dates[0].TimeGroups[0].Times
	require.Len(t, times, 2)
	assert.True(t, times[0].Malformed)
	assert.Equal(t, "9:00 AM", times[0].Display)
	assert.False(t, times[1].Malformed)
}

func TestExtractEmptyPage(t *testing.T) {
	res := Extract(page(t), "Boston", aprilWindow(t), nil)
	assert.Empty(t, res.Dates)
	assert.True(t, res.Skipped.Empty())
}

func TestConsoleNarratesOneLinePerDate(t *testing.T) {
	doc := page(t,
		column(label("Thursday", "Apr 10, 2025"),
			group("Morning", "2",
				slot("9:00 AM", "04/10/2025 09:00:00 AM"),
				slot("9:15 AM", "04/10/2025 09:15:00 AM"))),
		column(label("Friday", "Apr 11, 2025"), group("Morning", "0")),
		column(label("Saturday", "Apr 12, 2025"),
			group("Morning", "1", slot("10:00 AM", "04/12/2025 10:00:00 AM"))),
	)

	var out bytes.Buffer
	logger, hook := logtest.NewNullLogger()
	Extract(doc, "Boston", aprilWindow(t), NewConsole(&out, logger))

	assert.Equal(t, "Boston: Thursday, Apr 10, 2025 - 9:00 AM 9:15 AM\nBoston: Saturday, Apr 12, 2025 - 10:00 AM\n", out.String())
	assert.Empty(t, hook.Entries)
}

func TestExtractLoadsWindowOncePerPage(t *testing.T) {
	doc := page(t,
		column(label("Monday", "Mar 31, 2025"), group("Morning", "1", slot("9:00 AM", "03/31/2025 09:00:00 AM"))),
		column(label("Tuesday", "Apr 1, 2025"), group("Morning", "1", slot("9:00 AM", "04/01/2025 09:00:00 AM"))),
		column(label("Wednesday", "Apr 2, 2025")),
	)
	logger, hook := logtest.NewNullLogger()
	missing := window.File{Path: filepath.Join(t.TempDir(), "time_window.json"), Log: logger}

	res := Extract(doc, "Boston", missing, nil)

	assert.Len(t, res.Dates, 3)
	assert.Len(t, hook.Entries, 1)
}
