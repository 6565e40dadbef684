package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/keyo-app/pulse-toast/internal/colors"
	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/keyo-app/pulse-toast/internal/spool"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/spf13/cobra"
)

const feedTimeout = 5 * time.Second

// sendClient delivers a toast request to a running container.
type sendClient interface {
	Spool(req toast.Request) error
	Post(ctx context.Context, addr string, req toast.Request) (string, error)
}

type defaultSendClient struct {
	http *http.Client
}

var defaultSender sendClient = defaultSendClient{http: &http.Client{Timeout: feedTimeout}}

func (defaultSendClient) Spool(req toast.Request) error {
	return spool.Append(config.Get("spool_path", ""), req)
}

// Post creates the toast through the feed and returns its ID.
func (c defaultSendClient) Post(ctx context.Context, addr string, req toast.Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/toasts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post to feed: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode feed response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("feed rejected toast (%s): %s", resp.Status, out.Error)
	}
	return out.ID, nil
}

// NewSendCmd creates the send command with explicit dependencies.
func NewSendCmd(client sendClient) *cobra.Command {
	if client == nil {
		panic("NewSendCmd: client dependency cannot be nil")
	}

	var (
		titleFlag    string
		durationFlag time.Duration
		positionFlag string
		pinnedFlag   bool
		actionFlag   string
		actionIDFlag string
		cancelFlag   string
		cancelIDFlag string
		feedFlag     bool
		addrFlag     string
	)

	sendCmd := &cobra.Command{
		Use:   "send [kind] <message>",
		Short: "Raise a toast in a running container",
		Long: `Raise a toast in a running container.

KIND is one of default, success, error, info, warning or loading (default:
default). The toast is appended to the spool that watch and serve follow;
with --feed it is posted to the feed server instead and its ID is printed.

Buttons fire the action and cancel hooks with TOAST_BUTTON_ID set to the
button ID.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := toast.Request{Description: args[len(args)-1]}
			if len(args) == 2 {
				req.Kind = args[0]
			}
			req.Title = titleFlag
			req.Position = positionFlag
			if cmd.Flags().Changed("duration") {
				ms := durationFlag.Milliseconds()
				req.DurationMs = &ms
			}
			if pinnedFlag {
				dismissible := false
				req.Dismissible = &dismissible
			}
			if actionFlag != "" {
				req.Action = &toast.RequestButton{Label: actionFlag, ID: actionIDFlag}
			}
			if cancelFlag != "" {
				req.Cancel = &toast.RequestButton{Label: cancelFlag, ID: cancelIDFlag}
			}
			if err := req.Validate(); err != nil {
				return err
			}

			if feedFlag {
				ctx, cancel := context.WithTimeout(cmd.Context(), feedTimeout)
				defer cancel()
				id, err := client.Post(ctx, listenAddr(addrFlag), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			if err := client.Spool(req); err != nil {
				if errors.Is(err, spool.ErrEmptyPath) {
					return fmt.Errorf("send: spool_path is not configured")
				}
				return fmt.Errorf("send: %w", err)
			}
			colors.Success("toast queued")
			return nil
		},
	}

	sendCmd.Flags().StringVar(&titleFlag, "title", "", "Header text above the message")
	sendCmd.Flags().DurationVar(&durationFlag, "duration", 0, "Auto-dismiss delay, 0 keeps the toast until dismissed (default: PULSE_TOAST_DURATION config value)")
	sendCmd.Flags().StringVar(&positionFlag, "position", "", "Screen anchor, e.g. top-right (default: PULSE_TOAST_POSITION config value)")
	sendCmd.Flags().BoolVar(&pinnedFlag, "pinned", false, "Hide the close control")
	sendCmd.Flags().StringVar(&actionFlag, "action", "", "Primary button label")
	sendCmd.Flags().StringVar(&actionIDFlag, "action-id", "", "ID passed to the action hook")
	sendCmd.Flags().StringVar(&cancelFlag, "cancel", "", "Secondary button label")
	sendCmd.Flags().StringVar(&cancelIDFlag, "cancel-id", "", "ID passed to the cancel hook")
	sendCmd.Flags().BoolVar(&feedFlag, "feed", false, "Post to the feed server instead of the spool")
	sendCmd.Flags().StringVar(&addrFlag, "addr", "", "Feed address used with --feed (default: PULSE_TOAST_LISTEN_ADDR config value)")
	return sendCmd
}
