// Package window holds the date range appointments must fall into to raise an alert.
package window

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/slotwatch/slotwatch/internal/utils"
)

// DateLayout is the ISO calendar date format used by the descriptor and snapshots.
const DateLayout = "2006-01-02"

var (
	ErrMalformedDate = errors.New("malformed date")
	ErrEmptyRange    = errors.New("window start must be before end")
)

// Checker answers whether an ISO date is eligible.
type Checker interface {
	Contains(date string) (bool, error)
}

// Window is the range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

var _ Checker = Window{}

func New(start, end time.Time) (Window, error) {
	start, end = truncate(start), truncate(end)
	if !start.Before(end) {
		return Window{}, fmt.Errorf("%w: %s >= %s", ErrEmptyRange, start.Format(DateLayout), end.Format(DateLayout))
	}
	return Window{Start: start, End: end}, nil
}

// Default is used whenever the descriptor cannot be loaded.
func Default() Window {
	return Window{
		Start: time.Date(2025, time.March, 24, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.April, 24, 0, 0, 0, 0, time.UTC),
	}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, date)
	}
	return t, nil
}

// Contains reports whether date lies in the window. A malformed date is an
// error, never a membership answer.
func (w Window) Contains(date string) (bool, error) {
	t, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	return w.ContainsDate(t), nil
}

func (w Window) ContainsDate(t time.Time) bool {
	d := truncate(t)
	return !d.Before(w.Start) && d.Before(w.End)
}

func (w Window) String() string {
	return w.Start.Format(DateLayout) + " - " + w.End.Format(DateLayout)
}

// Parse reads a descriptor of the form {"start_date": "...", "end_date": "..."}.
func Parse(raw []byte) (Window, error) {
	if !gjson.ValidBytes(raw) {
		return Window{}, errors.New("window descriptor is not valid JSON")
	}
	startRes := gjson.GetBytes(raw, "start_date")
	endRes := gjson.GetBytes(raw, "end_date")
	if !startRes.Exists() || !endRes.Exists() {
		return Window{}, errors.New("window descriptor needs start_date and end_date")
	}
	start, err := ParseDate(startRes.String())
	if err != nil {
		return Window{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := ParseDate(endRes.String())
	if err != nil {
		return Window{}, fmt.Errorf("end_date: %w", err)
	}
	return New(start, end)
}

func Load(path string) (Window, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Window{}, err
	}
	w, err := Parse(raw)
	if err != nil {
		return Window{}, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// File is a Checker backed by the descriptor on disk. Every call re-reads the
// file so edits made between checks are honoured.
type File struct {
	Path string
	Log  logrus.FieldLogger
}

var _ Checker = File{}

// Current loads the descriptor, falling back to Default with a warning.
func (f File) Current() Window {
	w, err := Load(f.Path)
	if err != nil {
		utils.OrDiscard(f.Log).Warnf("Error loading time window: %v (using %s)", err, Default())
		return Default()
	}
	return w
}

func (f File) Contains(date string) (bool, error) {
	return f.Current().Contains(date)
}

// Resolve pins c for a batch of checks: a File is read once, so a missing
// descriptor warns once per batch rather than once per date.
func Resolve(c Checker) Checker {
	if f, ok := c.(File); ok {
		return f.Current()
	}
	return c
}

// Set rewrites start_date and/or end_date in the descriptor at path, keeping
// any other fields. Nil leaves the field as is. The resulting range must be valid.
func Set(path string, start, end *time.Time) (Window, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Window{}, err
		}
		def := Default()
		raw = []byte(fmt.Sprintf("{\n  \"start_date\": %q,\n  \"end_date\": %q\n}\n", def.Start.Format(DateLayout), def.End.Format(DateLayout)))
	}

	if start != nil {
		if raw, err = sjson.SetBytes(raw, "start_date", start.Format(DateLayout)); err != nil {
			return Window{}, err
		}
	}
	if end != nil {
		if raw, err = sjson.SetBytes(raw, "end_date", end.Format(DateLayout)); err != nil {
			return Window{}, err
		}
	}

	w, err := Parse(raw)
	if err != nil {
		return Window{}, err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return Window{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return Window{}, err
	}
	return w, nil
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
