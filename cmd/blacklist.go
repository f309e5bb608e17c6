package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slotwatch/slotwatch/pkg/lists"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist <location>",
	Short: "Move a location from the whitelist to the blacklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := loadSettings()
		lock, err := lockWorkdir(s)
		if err != nil {
			return err
		}
		defer lock.Unlock()

		loc := args[0]
		if err := lists.MoveToBlacklist(s.WhitelistPath, s.BlacklistPath, loc); err != nil {
			if errors.Is(err, lists.ErrNotInAllowList) {
				return fmt.Errorf("'%s' is not in the whitelist", loc)
			}
			return err
		}
		fmt.Printf("Moved '%s' from whitelist to blacklist\n", loc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blacklistCmd)
}
