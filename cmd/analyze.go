package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/slotwatch/slotwatch/internal/utils"
	"github.com/slotwatch/slotwatch/pkg/lists"
	"github.com/slotwatch/slotwatch/pkg/snapshot"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize every saved snapshot: locations, dates and the earliest appointment seen",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := loadSettings()

		blacklist, err := lists.Load(s.BlacklistPath)
		if err != nil {
			return err
		}
		if len(blacklist) > 0 {
			fmt.Printf("Loaded %d blacklisted locations\n", len(blacklist))
		}

		history, issues, err := snapshot.LoadAll(s.DataDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("data directory not found: %s", s.DataDir)
			}
			return err
		}
		for _, issue := range issues {
			utils.Log.Warnf("Error loading %v", issue)
		}
		if len(history.Runs) == 0 {
			fmt.Println("No data loaded.")
			return nil
		}
		fmt.Printf("Loaded %d data files (%s to %s)\n", len(history.Runs),
			history.Runs[0].At.Local().Format("2006-01-02 15:04"),
			history.Runs[len(history.Runs)-1].At.Local().Format("2006-01-02 15:04"))

		a := snapshot.Analyze(history.Filter(blacklist))
		for _, issue := range a.Issues {
			utils.Log.Warnf("Could not parse date/time: %v", issue)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{fmt.Sprintf("Locations (%d)", len(a.Locations))})
		for _, loc := range a.Locations {
			t.AppendRow(table.Row{loc})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		t = table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{fmt.Sprintf("Dates (%d)", len(a.Dates))})
		for _, d := range a.Dates {
			t.AppendRow(table.Row{d})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if a.Earliest == nil {
			fmt.Println("No appointments seen.")
			return nil
		}
		e := a.Earliest
		t = table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("Earliest Available Appointment")
		t.AppendRows([]table.Row{
			{"Location", e.Location},
			{"Date", e.Date},
			{"Time", e.Time},
			{"Seen at", e.SeenAt.Local().Format("2006-01-02 15:04:05")},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
