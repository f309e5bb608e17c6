package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slotwatch/slotwatch/internal/utils"
	"github.com/slotwatch/slotwatch/pkg/browser"
	"github.com/slotwatch/slotwatch/pkg/extract"
	"github.com/slotwatch/slotwatch/pkg/lists"
	"github.com/slotwatch/slotwatch/pkg/snapshot"
	"github.com/slotwatch/slotwatch/pkg/storage"
	"github.com/slotwatch/slotwatch/pkg/traverse"
	"github.com/slotwatch/slotwatch/pkg/window"
)

// browseCmd implements: slotwatch browse
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Scrape every location once (or every --interval) and alert on matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'slotwatch browse --help'", args[0])
		}

		interval, _ := cmd.Flags().GetDuration("interval")
		useDB, _ := cmd.Flags().GetBool("db")
		noAlert, _ := cmd.Flags().GetBool("no-alert")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := loadSettings()
		if !noAlert {
			if _, err := s.notifier(); err != nil {
				return err
			}
		}
		if interval <= 0 {
			return browseOnce(ctx, s, useDB, !noAlert)
		}

		for {
			if err := browseOnce(ctx, s, useDB, !noAlert); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if isConfigError(err) {
					return err
				}
				utils.Log.Errorf("Run failed: %v", err)
			}
			utils.Log.Infof("Next run at %s", time.Now().Add(interval).Format("15:04:05"))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
	},
}

// isConfigError reports errors no later run can recover from.
func isConfigError(err error) bool {
	return errors.Is(err, lists.ErrMissingTargetURL) || errors.Is(err, errUnknownNotifyMode)
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().Duration("interval", 0, "Repeat the run every interval (e.g. 15m); 0 runs once")
	browseCmd.Flags().Bool("db", false, "Also record the snapshot in the SQLite history and print changes")
	browseCmd.Flags().Bool("no-alert", false, "Only scrape and save, do not match or notify")
	browseCmd.Flags().Bool("headless", true, "Run the browser without a window")
	viper.BindPFlag("browser.headless", browseCmd.Flags().Lookup("headless"))
}

// browseOnce performs one full run. Partial data is saved even when the
// traversal aborts, and the abort is returned afterwards.
func browseOnce(ctx context.Context, s settings, useDB, alerts bool) error {
	lock, err := lockWorkdir(s)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	targetURL, err := lists.ReadTargetURL(s.URLPath)
	if err != nil {
		return err
	}
	blacklist, err := lists.Load(s.BlacklistPath)
	if err != nil {
		return err
	}
	if len(blacklist) > 0 {
		utils.Log.Debugf("Loaded %d blacklisted locations", len(blacklist))
	}

	session, err := browser.NewChrome(ctx, s.Browser)
	if err != nil {
		return err
	}
	defer session.Close()

	started := time.Now()
	res, runErr := traverse.Run(ctx, traverse.Config{
		Session:    session,
		EntryURL:   targetURL,
		Exclusions: blacklist,
		Window:     window.File{Path: s.WindowPath, Log: utils.Log},
		Reporter:   extract.NewConsole(os.Stdout, utils.Log),
		Log:        utils.Log,
		Out:        os.Stdout,
		Attempts:   s.Attempts,
		Backoff:    s.Backoff,
		MaxPages:   s.MaxPages,
	})
	return saveRun(ctx, s, blacklist, res, runErr, started, useDB, alerts)
}

// saveRun persists what a traversal collected, then alerts on it. A run that
// failed before reaching any location leaves no snapshot behind.
func saveRun(ctx context.Context, s settings, blacklist lists.Set, res *traverse.Result, runErr error, started time.Time, useDB, alerts bool) error {
	if res == nil || (runErr != nil && len(res.Locations) == 0) {
		return runErr
	}
	for _, e := range res.Errors {
		utils.Log.Debugf("Recovered from: %v", e)
	}

	added, err := lists.RecordDiscovered(s.WhitelistPath, blacklist, res.Visited())
	if err != nil {
		utils.Log.Errorf("Could not update whitelist: %v", err)
	} else if len(added) > 0 {
		fmt.Println("\nAdded new locations to whitelist:")
		for _, loc := range added {
			fmt.Printf("  %s\n", loc)
		}
	}

	snap, issues := snapshot.Normalize(res.Locations)
	for _, issue := range issues {
		utils.Log.Warnf("Dropped slot: %v", issue)
	}

	path, err := snapshot.Write(s.DataDir, snap, started)
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("save snapshot: %w", err))
	}
	utils.Log.Infof("Saved %d slots at %d locations to %s", snap.SlotCount(), len(snap), path)

	if useDB {
		if err := recordHistory(ctx, s.DBPath, snap, started, res.FullyVisited()); err != nil {
			utils.Log.Errorf("Could not record history: %v", err)
		}
	}

	if alerts {
		if err := runAlert(ctx, s, snap); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func recordHistory(ctx context.Context, dbPath string, snap snapshot.Snapshot, at time.Time, complete []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	changes, err := db.RecordSnapshot(ctx, snap, at, complete)
	if err != nil {
		return err
	}
	printChanges(changes)
	return nil
}
