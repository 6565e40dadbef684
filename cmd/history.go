package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/keyo-app/pulse-toast/internal/format"
	"github.com/keyo-app/pulse-toast/internal/history"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/spf13/cobra"
)

const defaultListSize = 20

// historyStore is the part of the journal used by history and cleanup.
type historyStore interface {
	List(ctx context.Context, f history.Filter) ([]history.Record, error)
	Cleanup(ctx context.Context, days int, dryRun bool) (int64, error)
	Close() error
}

// historyOpener opens the journal for one command run.
type historyOpener func() (historyStore, error)

func openJournalStore() (historyStore, error) {
	j, err := openJournal()
	if err != nil {
		return nil, err
	}
	return j, nil
}

// NewHistoryCmd creates the history command with explicit dependencies.
func NewHistoryCmd(open historyOpener) *cobra.Command {
	if open == nil {
		panic("NewHistoryCmd: open dependency cannot be nil")
	}

	var (
		kindFlag   string
		stateFlag  string
		limitFlag  int
		formatFlag string
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent toasts",
		Long: `List recent toasts, newest first.

Shows live toasts and toasts removed by timeout, dismissal, the close
control or a button, with their age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatType := format.FormatterType(formatFlag)
			if !formatType.IsValid() {
				return fmt.Errorf("history: invalid format %q (expected %s)", formatFlag, formatNames())
			}
			filter := history.Filter{Kind: toast.Kind(kindFlag), State: history.State(stateFlag), Limit: limitFlag}

			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(records) == 0 && formatType != format.FormatterTypeJSON {
				fmt.Fprintln(cmd.OutOrStdout(), "No toasts recorded")
				return nil
			}
			return format.NewFormatter(formatType, nil).FormatRecords(records, cmd.OutOrStdout())
		},
	}

	historyCmd.Flags().StringVar(&kindFlag, "kind", "", "Only show toasts of this kind")
	historyCmd.Flags().StringVar(&stateFlag, "state", string(history.StateAll), "Filter by state: all, live, removed")
	historyCmd.Flags().IntVar(&limitFlag, "limit", defaultListSize, "Maximum number of toasts, 0 for all")
	historyCmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: "+formatNames())
	return historyCmd
}

func formatNames() string {
	names := make([]string, 0, len(format.Types))
	for _, t := range format.Types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
