package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/slotwatch/slotwatch/pkg/lists"
)

// Run is one stored snapshot.
type Run struct {
	At       time.Time
	Path     string
	Snapshot Snapshot
}

// History holds stored runs, oldest first.
type History struct {
	Runs []Run
}

// FileName is the name a snapshot taken at at is stored under.
func FileName(at time.Time) string {
	return strconv.FormatInt(at.Unix(), 10) + ".json"
}

// Write stores snap as dir/<unix seconds>.json and returns the path. The
// file appears atomically.
func Write(dir string, snap Snapshot, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(at))
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Read loads one snapshot file.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// LoadAll reads every <unix>.json in dir. Files that fail to decode are
// skipped and returned as issues. A missing dir is an error.
func LoadAll(dir string) (*History, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	h := &History{}
	var issues []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		sec, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		snap, err := Read(path)
		if err != nil {
			issues = append(issues, err)
			continue
		}
		h.Runs = append(h.Runs, Run{At: time.Unix(sec, 0).UTC(), Path: path, Snapshot: snap})
	}
	sort.Slice(h.Runs, func(i, j int) bool { return h.Runs[i].At.Before(h.Runs[j].At) })
	return h, issues, nil
}

// Latest returns the most recent run, or false when there is none.
func (h *History) Latest() (Run, bool) {
	if len(h.Runs) == 0 {
		return Run{}, false
	}
	return h.Runs[len(h.Runs)-1], true
}

// Filter returns a copy of h without the excluded locations.
func (h *History) Filter(excl lists.Set) *History {
	out := &History{Runs: make([]Run, 0, len(h.Runs))}
	for _, r := range h.Runs {
		snap := Snapshot{}
		for loc, dates := range r.Snapshot {
			if !excl.Has(loc) {
				snap[loc] = dates
			}
		}
		out.Runs = append(out.Runs, Run{At: r.At, Path: r.Path, Snapshot: snap})
	}
	return out
}
