package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwatch/slotwatch/pkg/extract"
	"github.com/slotwatch/slotwatch/pkg/lists"
	"github.com/slotwatch/slotwatch/pkg/traverse"
)

func day(date time.Time, groups ...extract.TimeGroup) extract.DateGroup {
	return extract.DateGroup{DayName: date.Weekday().String(), Label: date.Format("Jan 2, 2006"), Date: date, TimeGroups: groups}
}

func grp(machine ...string) extract.TimeGroup {
	g := extract.TimeGroup{Title: "Morning"}
	for _, m := range machine {
		g.Times = append(g.Times, extract.TimeSlot{Display: m, MachineTime: m})
	}
	return g
}

var apr10 = time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)

func TestNormalizeUnionsPagesSortedWithoutDuplicates(t *testing.T) {
	records := []traverse.LocationRecord{{
		Location: "Boston",
		Pages: []traverse.RawPageRecord{
			{Dates: []extract.DateGroup{day(apr10, grp("04/10/2025 09:00:00 AM", "04/10/2025 10:30:00 AM"))}},
			{Dates: []extract.DateGroup{day(apr10, grp("04/10/2025 10:30:00 AM", "04/10/2025 09:00:00 AM"), grp("04/10/2025 11:00:00 AM"))}},
		},
	}}

	snap, issues := Normalize(records)
	assert.Empty(t, issues)
	assert.Equal(t, Snapshot{"Boston": {"2025-04-10": {"09:00", "10:30", "11:00"}}}, snap)
}

func TestNormalizeDropsUnparsableTimes(t *testing.T) {
	records := []traverse.LocationRecord{{
		Location: "Boston",
		Pages: []traverse.RawPageRecord{
			{Dates: []extract.DateGroup{day(apr10, grp("not a time", "04/10/2025 09:15:00 AM"))}},
		},
	}, {
		Location: "Lowell",
		Pages: []traverse.RawPageRecord{
			{Dates: []extract.DateGroup{day(apr10.AddDate(0, 0, 1), grp("garbage"))}},
		},
	}}

	snap, issues := Normalize(records)
	require.Len(t, issues, 2)
	assert.ErrorIs(t, issues[0], extract.ErrMachineTime)
	assert.Equal(t, []string{"09:15"}, snap["Boston"]["2025-04-10"])
	// the date stays, with no times
	assert.Equal(t, []string{}, snap["Lowell"]["2025-04-11"])
}

func TestNormalizeKeepsVisitedLocationsWithoutDates(t *testing.T) {
	snap, issues := Normalize([]traverse.LocationRecord{{Location: "Worcester", Pages: []traverse.RawPageRecord{{}}}})
	assert.Empty(t, issues)
	assert.Equal(t, Snapshot{"Worcester": {}}, snap)
	assert.Equal(t, []string{"Worcester"}, snap.Locations())
	assert.Zero(t, snap.SlotCount())
}

func TestWriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	snap := Snapshot{
		"Boston": {"2025-04-10": {"09:00"}, "2025-04-11": {}},
		"Lowell": {},
	}
	at := time.Unix(1742860800, 0)

	path, err := Write(dir, snap, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1742860800.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"Boston\": {\n")
	assert.Contains(t, string(raw), `"2025-04-11": []`)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadAllSortsRunsAndSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, Snapshot{"Lowell": {"2025-04-12": {"08:00"}}}, time.Unix(200, 0))
	require.NoError(t, err)
	_, err = Write(dir, Snapshot{"Boston": {"2025-04-10": {"09:00"}}}, time.Unix(100, 0))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "300.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))

	h, issues, err := LoadAll(dir)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
	require.Len(t, h.Runs, 2)
	assert.Equal(t, int64(100), h.Runs[0].At.Unix())
	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(200), latest.At.Unix())

	_, _, err = LoadAll(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestAnalyzeFindsEarliestAppointment(t *testing.T) {
	h := &History{Runs: []Run{
		{At: time.Unix(100, 0), Snapshot: Snapshot{
			"Boston": {"2025-04-10": {"09:00", "10:00"}, "2025-04-02": {}},
			"Lowell": {"2025-04-08": {"14:00"}},
		}},
		{At: time.Unix(200, 0), Snapshot: Snapshot{
			"Boston":    {"2025-04-08": {"08:30"}},
			"Worcester": {"2025-04-08": {"08:30"}},
		}},
	}}

	a := Analyze(h)
	assert.Equal(t, []string{"Boston", "Lowell", "Worcester"}, a.Locations)
	assert.Equal(t, []string{"2025-04-02", "2025-04-08", "2025-04-10"}, a.Dates)
	require.NotNil(t, a.Earliest)
	assert.Equal(t, Appointment{Location: "Boston", Date: "2025-04-08", Time: "08:30", SeenAt: time.Unix(200, 0)}, *a.Earliest)
	assert.Empty(t, a.Issues)

	filtered := Analyze(h.Filter(lists.NewSet("Boston")))
	assert.Equal(t, []string{"Lowell", "Worcester"}, filtered.Locations)
	assert.Equal(t, "Worcester", filtered.Earliest.Location)
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	a := Analyze(&History{})
	assert.Nil(t, a.Earliest)
	assert.Empty(t, a.Locations)
}
