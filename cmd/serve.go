package cmd

import (
	"github.com/keyo-app/pulse-toast/internal/colors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		addrFlag   string
		replayFlag bool
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the toast feed without a terminal view",
		Long: `Serve the toast feed without a terminal view.

Browser renderers connect to /ws for live snapshots and drive toasts through
the /toasts endpoints. Spool requests are followed as with watch. Runs until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			addr := listenAddr(addrFlag)
			g, gctx := errgroup.WithContext(cmd.Context())
			follower := rt.follower(replayFlag)
			g.Go(func() error { return follower.Run(gctx) })

			srv := newFeedServer(rt)
			g.Go(func() error { return srv.ListenAndServe(gctx, addr) })

			colors.Info("Serving toast feed on", "http://"+addr)
			return g.Wait()
		},
	}

	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default: PULSE_TOAST_LISTEN_ADDR config value)")
	serveCmd.Flags().BoolVar(&replayFlag, "replay", false, "Replay requests already in the spool")
	return serveCmd
}
