package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/slotwatch/slotwatch/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the slot history database",
}

// historyPath resolves --dbpath or files.db and checks the file exists.
func historyPath(cmd *cobra.Command) (string, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	if dbPath == "" {
		dbPath = loadSettings().DBPath
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("database file not found: %s (run 'slotwatch browse --db' first)", dbPath)
	}
	return dbPath, nil
}

func openDB(cmd *cobra.Command) (*storage.DB, error) {
	dbPath, err := historyPath(cmd)
	if err != nil {
		return nil, err
	}
	return storage.Open(dbPath)
}

// sqliteShellArgs opens the history in sqlite3 with the schema printed first.
// The session is read-only unless writable is set.
func sqliteShellArgs(dbPath string, writable bool) []string {
	args := []string{"-header", "-column", "-cmd", ".schema"}
	if !writable {
		args = append(args, "-readonly")
	}
	return append(args, dbPath)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open the slot history in an interactive sqlite3 shell",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, err := historyPath(cmd)
		if err != nil {
			return err
		}
		sqlite, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 not found in PATH: %w", err)
		}
		writable, _ := cmd.Flags().GetBool("write")

		c := exec.CommandContext(cmd.Context(), sqlite, sqliteShellArgs(dbPath, writable)...)
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		return c.Run()
	},
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent slot changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Local().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  %s  %s %s\n", ts, c.ChangeType, c.Location, c.Date, c.Time)
		}
		return nil
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List the slots that were open at the last visit of each location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		location, _ := cmd.Flags().GetString("location")
		since, _ := cmd.Flags().GetDuration("since")
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		opts := storage.ListOptions{LocationFilter: location}
		if since > 0 {
			opts.Since = time.Now().Add(-since)
		}
		slots, err := db.ListSlots(context.Background(), opts)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Location", "Date", "Time", "First seen", "Last seen"})
		for _, s := range slots {
			t.AppendRow(table.Row{s.Location, s.Date, s.Time,
				s.FirstSeenAt.Local().Format("2006-01-02 15:04"),
				s.LastSeenAt.Local().Format("2006-01-02 15:04")})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints per-location statistics about the open slots in the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Location", "Dates", "Slots", "Earliest"})

		var totalDates, totalSlots int
		for _, s := range stats {
			t.AppendRow(table.Row{s.Location, s.DateCount, s.SlotCount, s.Earliest})
			totalDates += s.DateCount
			totalSlots += s.SlotCount
		}
		t.AppendFooter(table.Row{"Total", totalDates, totalSlots, ""})
		t.SetStyle(table.StyleRounded)
		t.Render()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	shellCmd.Flags().Bool("write", false, "Allow statements that modify the history")
	dbCmd.AddCommand(changesCmd)
	dbCmd.AddCommand(slotsCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: files.db from config)")
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
	slotsCmd.Flags().String("location", "", "Only show locations containing this text")
	slotsCmd.Flags().Duration("since", 0, "Only show slots seen within this duration (e.g. 24h)")
}

func printChanges(changes []storage.Change) {
	for _, c := range changes {
		var emoji string
		switch c.ChangeType {
		case "added":
			emoji = "🆕"
		case "removed":
			emoji = "❌"
		}
		fmt.Printf("%s  %s  %s %s\n", emoji, c.Location, c.Date, c.Time)
	}
}
