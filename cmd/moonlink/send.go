package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <payload>",
	Short: "Send one command to the board",
	Long: `Connects to the board, sends the payload once and disconnects.

The payload is passed through as-is; the board firmware defines its grammar.

Examples:
  # Light a start hold, a progression hold and the finish hold
  moonlink send "l#S12,P40,E197#"

  # Slow the link down for a flaky board
  moonlink send --chunk-size 10 --delay 30ms "l#S12,P40,E197#"`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	payload := args[0]
	if strings.TrimSpace(payload) == "" {
		return fmt.Errorf("payload must not be empty")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	return a.withConnection(ctx, cmd, func(ctx context.Context) error {
		addr := a.peerAddress()
		if err := a.manager.Send(ctx, payload); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d bytes to %s\n", len(payload), addr)
		return nil
	})
}

// withConnection acquires the shared connection with a progress line, runs fn and
// releases the connection again
func (a *app) withConnection(ctx context.Context, cmd *cobra.Command, fn func(ctx context.Context) error) error {
	progress := newConnectProgress(cmd.OutOrStdout(), "Connecting to board", a.cfg.ScanTimeout)
	unsubscribe := a.manager.Subscribe(progress.Observe)
	progress.Start()

	err := a.acquire(ctx)
	unsubscribe()
	progress.Stop()
	defer a.manager.Release()

	if err != nil {
		return err
	}
	return fn(ctx)
}

// peerAddress returns the connected board's address for display
func (a *app) peerAddress() string {
	if peer := a.manager.Peer(); peer != nil {
		return peer.Addr()
	}
	return "board"
}
