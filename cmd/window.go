package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/slotwatch/slotwatch/internal/utils"
	"github.com/slotwatch/slotwatch/pkg/window"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Show or change the alert time window",
}

var windowShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the time window used for alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := loadSettings()
		w := window.File{Path: s.WindowPath, Log: utils.Log}.Current()
		printWindow(s.WindowPath, w)
		return nil
	},
}

var windowSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the start and/or end of the time window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, err := dateFlag(cmd, "start")
		if err != nil {
			return err
		}
		end, err := dateFlag(cmd, "end")
		if err != nil {
			return err
		}
		if start == nil && end == nil {
			return fmt.Errorf("nothing to change: pass --start and/or --end")
		}

		s := loadSettings()
		w, err := window.Set(s.WindowPath, start, end)
		if err != nil {
			return err
		}
		printWindow(s.WindowPath, w)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(windowCmd)
	windowCmd.AddCommand(windowShowCmd)
	windowCmd.AddCommand(windowSetCmd)
	windowSetCmd.Flags().String("start", "", "First eligible date (YYYY-MM-DD)")
	windowSetCmd.Flags().String("end", "", "First date no longer eligible (YYYY-MM-DD)")
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil, nil
	}
	t, err := window.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func printWindow(path string, w window.Window) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(path)
	t.AppendHeader(table.Row{"Start (inclusive)", "End (exclusive)", "Days"})
	t.AppendRow(table.Row{w.Start.Format(window.DateLayout), w.End.Format(window.DateLayout), int(w.End.Sub(w.Start).Hours() / 24)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
