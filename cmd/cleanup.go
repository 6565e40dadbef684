package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command with explicit dependencies.
func NewCleanupCmd(open historyOpener) *cobra.Command {
	if open == nil {
		panic("NewCleanupCmd: open dependency cannot be nil")
	}

	var (
		daysFlag   int
		dryRunFlag bool
	)

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old toast history",
		Long: `Delete old toast history.

Removes records of toasts that were removed more than the given number of
days ago. Live toasts are never deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days := daysFlag
			if days == 0 {
				days = config.GetInt("history_retention_days", 30)
			}
			if days <= 0 {
				return fmt.Errorf("days must be a positive integer")
			}

			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Cleanup(cmd.Context(), days, dryRunFlag)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			if dryRunFlag {
				cmd.Printf("Would delete %s records removed more than %d days ago\n", humanize.Comma(n), days)
				return nil
			}
			cmd.Printf("Deleted %s records removed more than %d days ago\n", humanize.Comma(n), days)
			return nil
		},
	}

	// Zero means "use config value".
	cleanupCmd.Flags().IntVar(&daysFlag, "days", 0, "Delete records removed more than N days ago (default: PULSE_TOAST_HISTORY_RETENTION_DAYS config value)")
	cleanupCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Show how many records would be deleted without deleting")
	return cleanupCmd
}
