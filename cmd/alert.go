package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slotwatch/slotwatch/internal/utils"
	"github.com/slotwatch/slotwatch/pkg/alert"
	"github.com/slotwatch/slotwatch/pkg/lists"
	"github.com/slotwatch/slotwatch/pkg/snapshot"
	"github.com/slotwatch/slotwatch/pkg/window"
)

var alertCmd = &cobra.Command{
	Use:   "alert <snapshot.json>",
	Short: "Match a saved snapshot against the time window and notify",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.Read(args[0])
		if err != nil {
			return fmt.Errorf("error loading data file: %w", err)
		}
		return runAlert(cmd.Context(), loadSettings(), snap)
	},
}

func init() {
	rootCmd.AddCommand(alertCmd)
}

// runAlert prints the alert summary for snap and fires the notifications.
// A missing target URL is fatal even when nothing matches.
func runAlert(ctx context.Context, s settings, snap snapshot.Snapshot) error {
	targetURL, err := lists.ReadTargetURL(s.URLPath)
	if err != nil {
		return err
	}
	blacklist, err := lists.Load(s.BlacklistPath)
	if err != nil {
		return err
	}
	n, err := s.notifier()
	if err != nil {
		return err
	}

	events, issues := alert.Match(snap, window.File{Path: s.WindowPath, Log: utils.Log}, blacklist)
	for _, issue := range issues {
		utils.Log.Warnf("Skipping date: %v", issue)
	}

	alert.Report(os.Stdout, events, alert.ReportOptions{MapsTemplate: s.MapsTemplate})
	if len(events) == 0 {
		utils.Log.Debug("No alerts triggered for this data")
		return nil
	}

	fmt.Println("\nMatching appointments found! Opening notifications...")
	sent := alert.Dispatch(ctx, events, n, targetURL, s.Endpoint, utils.Log)
	utils.Log.Debugf("Delivered %d notifications", sent)
	return nil
}
