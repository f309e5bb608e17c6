// Package storage keeps a sqlite history of open slots and of the slots that
// appeared or disappeared between runs.
package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slotwatch/slotwatch/pkg/snapshot"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS slot_entries (
  id            INTEGER PRIMARY KEY,
  location      TEXT NOT NULL,
  date          TEXT NOT NULL,
  time          TEXT NOT NULL,
  run_id        INTEGER NOT NULL DEFAULT 0,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(location, date, time)
);
CREATE INDEX IF NOT EXISTS idx_slot_location ON slot_entries(location);
CREATE TABLE IF NOT EXISTS slot_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  location    TEXT NOT NULL,
  date        TEXT NOT NULL,
  time        TEXT NOT NULL,
  change_type TEXT NOT NULL CHECK (change_type IN ('added','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON slot_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_location ON slot_changes(location, occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordSnapshot stores the slots of a run taken at at. Every slot in snap is
// upserted, but only locations listed in complete are swept: their slots
// missing from snap are removed. A partially read location only gains slots.
// The returned changes are also logged to slot_changes.
func (d *DB) RecordSnapshot(ctx context.Context, snap snapshot.Snapshot, at time.Time, complete []string) ([]Change, error) {
	runID := at.Unix()
	now := at.UTC().Truncate(time.Second)
	ts := formatTimestamp(at)

	sweep := make(map[string]bool, len(complete))
	for _, loc := range complete {
		sweep[loc] = true
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var changes []Change
	for _, loc := range snap.Locations() {
		var existing map[string]bool
		existing, err = d.locationSlots(ctx, tx, loc)
		if err != nil {
			return nil, err
		}

		for _, date := range snap.Dates(loc) {
			for _, clock := range snap[loc][date] {
				if existing[slotKey(date, clock)] {
					_, err = tx.ExecContext(ctx, `UPDATE slot_entries SET run_id = ?, last_seen_at = ? WHERE location = ? AND date = ? AND time = ?`, runID, ts, loc, date, clock)
					if err != nil {
						return nil, err
					}
					continue
				}
				_, err = tx.ExecContext(ctx, `INSERT INTO slot_entries(location, date, time, run_id, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?)`, loc, date, clock, runID, ts, ts)
				if err != nil {
					return nil, err
				}
				_, err = tx.ExecContext(ctx, `INSERT INTO slot_changes(occurred_at, location, date, time, change_type) VALUES(?, ?, ?, ?, 'added')`, ts, loc, date, clock)
				if err != nil {
					return nil, err
				}
				existing[slotKey(date, clock)] = true
				changes = append(changes, Change{OccurredAt: now, Location: loc, Date: date, Time: clock, ChangeType: "added"})
			}
		}

		if !sweep[loc] {
			continue
		}

		// Sweep: slots of this location not touched in this run are gone
		var stale []Slot
		stale, err = d.staleSlots(ctx, tx, loc, runID)
		if err != nil {
			return nil, err
		}
		if len(stale) == 0 {
			continue
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM slot_entries WHERE location = ? AND run_id != ?`, loc, runID)
		if err != nil {
			return nil, err
		}
		for _, s := range stale {
			_, err = tx.ExecContext(ctx, `INSERT INTO slot_changes(occurred_at, location, date, time, change_type) VALUES(?, ?, ?, ?, 'removed')`, ts, loc, s.Date, s.Time)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{OccurredAt: now, Location: loc, Date: s.Date, Time: s.Time, ChangeType: "removed"})
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (d *DB) locationSlots(ctx context.Context, tx *sql.Tx, loc string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT date, time FROM slot_entries WHERE location = ?", loc)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var date, clock string
		if err := rows.Scan(&date, &clock); err != nil {
			return nil, err
		}
		out[slotKey(date, clock)] = true
	}
	return out, rows.Err()
}

func (d *DB) staleSlots(ctx context.Context, tx *sql.Tx, loc string, runID int64) ([]Slot, error) {
	rows, err := tx.QueryContext(ctx, "SELECT date, time FROM slot_entries WHERE location = ? AND run_id != ? ORDER BY date, time", loc, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		s := Slot{Location: loc}
		if err := rows.Scan(&s.Date, &s.Time); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListOptions controls selection when listing slots.
type ListOptions struct {
	LocationFilter string
	Since          time.Time
}

// ListSlots returns the currently open slots matching filters.
func (d *DB) ListSlots(ctx context.Context, opts ListOptions) ([]Slot, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.LocationFilter != "" {
		where += " AND location LIKE ?"
		args = append(args, "%"+opts.LocationFilter+"%")
	}
	if !opts.Since.IsZero() {
		where += " AND last_seen_at >= ?"
		args = append(args, formatTimestamp(opts.Since))
	}

	q := "SELECT location, date, time, first_seen_at, last_seen_at FROM slot_entries " + where + " ORDER BY location, date, time"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var s Slot
		var first, last string
		if err := rows.Scan(&s.Location, &s.Date, &s.Time, &first, &last); err != nil {
			return nil, err
		}
		s.FirstSeenAt = parseTimestamp(first)
		s.LastSeenAt = parseTimestamp(last)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentChanges returns the most recent N changes across all locations.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, location, date, time, change_type FROM slot_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAt string
		if err := rows.Scan(&occurredAt, &c.Location, &c.Date, &c.Time, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAt)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (d *DB) GetStats(ctx context.Context) ([]LocationStats, error) {
	query := `
		SELECT
			location,
			COUNT(DISTINCT date),
			COUNT(*),
			MIN(date || ' ' || time)
		FROM
			slot_entries
		GROUP BY
			location
		ORDER BY
			location;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []LocationStats
	for rows.Next() {
		var s LocationStats
		var earliest sql.NullString
		if err := rows.Scan(&s.Location, &s.DateCount, &s.SlotCount, &earliest); err != nil {
			return nil, err
		}
		s.Earliest = strings.TrimSpace(earliest.String)
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
