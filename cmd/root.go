// Package cmd implements the pulse-toast command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyo-app/pulse-toast/internal/colors"
	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var debugFlag, quietFlag bool

	root := &cobra.Command{
		Use:   version.Name,
		Short: "Toast notifications for terminals and web renderers.",
		Long: `Toast notifications for terminals and web renderers.

pulse-toast keeps a live list of short-lived notifications, shows them in a
terminal container and pushes them to browser renderers over a websocket
feed. Other processes raise toasts with "pulse-toast send".`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			if cmd.Flags().Changed("debug") {
				config.Set("debug", boolString(debugFlag))
			}
			if cmd.Flags().Changed("quiet") {
				config.Set("quiet", boolString(quietFlag))
			}
			colors.SetDebug(config.GetBool("debug", false))
			colors.SetQuiet(config.GetBool("quiet", false))
			if err := logging.InitGlobal(); err != nil {
				colors.Warning("file logging disabled:", err.Error())
			}
			logging.Debug("command started", "command", cmd.CommandPath())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Debug("command finished", "command", cmd.CommandPath())
			_ = logging.ShutdownGlobal()
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Print debug output (PULSE_TOAST_DEBUG)")
	root.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only print warnings and errors (PULSE_TOAST_QUIET)")

	root.AddCommand(
		NewWatchCmd(),
		NewServeCmd(),
		NewSendCmd(defaultSender),
		NewHistoryCmd(openJournalStore),
		NewCleanupCmd(openJournalStore),
		NewVersionCmd(),
	)
	return root
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		colors.Error(err.Error())
	}
	return err
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
