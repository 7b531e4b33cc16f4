package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/moonlink/internal/ptybridge"
)

// bridgeCmd represents the bridge command
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Expose the board as a PTY",
	Long: `Connects to the board and creates a pseudo-terminal. Every line written to the
terminal is sent to the board as one payload, so any serial tool or shell script
can drive the LEDs:

  moonlink bridge --symlink /tmp/moonboard
  echo 'l#S12,P40,E197#' > /tmp/moonboard

Runs until interrupted with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runBridge,
}

var (
	bridgeSymlink string
	bridgeMaxLine int
)

func init() {
	bridgeCmd.Flags().StringVar(&bridgeSymlink, "symlink", "", "Create a symlink to the PTY device (e.g., /tmp/moonboard)")
	bridgeCmd.Flags().IntVar(&bridgeMaxLine, "max-line", ptybridge.DefaultMaxLine, "Longest line forwarded; longer lines are dropped")
}

func runBridge(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	out := cmd.OutOrStdout()
	return a.withConnection(ctx, cmd, func(ctx context.Context) error {
		b, err := ptybridge.New(a.manager, a.logger,
			ptybridge.WithSymlink(bridgeSymlink),
			ptybridge.WithMaxLine(bridgeMaxLine),
			ptybridge.WithLineHandler(func(line string, err error) {
				if err != nil {
					fmt.Fprintf(out, "%s %q: %s\n", color.RedString("✗"), line, FormatUserError(err))
				}
			}),
		)
		if err != nil {
			return err
		}
		defer b.Close()

		fmt.Fprintf(out, "Bridge running on %s", b.TTYName())
		if bridgeSymlink != "" {
			fmt.Fprintf(out, " (linked at %s)", bridgeSymlink)
		}
		fmt.Fprintln(out, ", press Ctrl+C to stop")

		if err := b.Run(ctx); err != nil {
			return err
		}

		stats := b.Stats()
		fmt.Fprintf(out, "Bridge stopped: %d lines sent, %d failed\n", stats.Lines, stats.FailedLines)
		return nil
	})
}
