package cmd

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/keyo-app/pulse-toast/internal/feed"
	"github.com/keyo-app/pulse-toast/internal/tui/state"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var (
		serveFlag  bool
		addrFlag   string
		replayFlag bool
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Show toasts in the terminal",
		Long: `Show toasts in the terminal.

Follows the spool for toasts sent by other processes and renders them by
position. With --serve the websocket feed runs alongside the terminal view.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			model := state.NewModel(rt.scope, config.GetInt("visible_toasts", state.DefaultVisible))
			defer model.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)

			follower := rt.follower(replayFlag)
			g.Go(func() error { return follower.Run(gctx) })

			if serveFlag {
				srv := newFeedServer(rt)
				addr := listenAddr(addrFlag)
				g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
			}

			g.Go(func() error {
				// Leaving the terminal view stops the follower and the feed.
				defer cancel()
				p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
				if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
					return err
				}
				return nil
			})
			return g.Wait()
		},
	}

	watchCmd.Flags().BoolVar(&serveFlag, "serve", false, "Also serve the websocket feed")
	watchCmd.Flags().StringVar(&addrFlag, "addr", "", "Feed listen address (default: PULSE_TOAST_LISTEN_ADDR config value)")
	watchCmd.Flags().BoolVar(&replayFlag, "replay", false, "Replay requests already in the spool")
	return watchCmd
}

func newFeedServer(rt *runtime) *feed.Server {
	opts := []feed.Option{
		feed.WithButtonHandler(rt.hooks.ButtonHandler()),
		feed.WithLogger(rt.logger),
	}
	if g := rt.gatherer(); g != nil {
		opts = append(opts, feed.WithGatherer(g))
	}
	return feed.NewServer(rt.scope, opts...)
}

func listenAddr(flag string) string {
	if flag != "" {
		return flag
	}
	return config.Get("listen_addr", "127.0.0.1:7878")
}
