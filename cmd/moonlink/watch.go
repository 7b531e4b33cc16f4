package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/moonlink/internal/link"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Hold the connection and print lifecycle events",
	Long: `Connects to the board and prints every connection status change until
interrupted with Ctrl+C.

With --json every event is written as one JSON object per line.

Example:
  moonlink watch --log-level info
  moonlink watch --json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("json", false, "Print events as JSON lines")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	unsubscribe := a.manager.Subscribe(func(ev link.Event) {
		if asJSON {
			if err := printEventJSON(out, ev); err != nil {
				a.logger.WithError(err).Warn("Failed to encode event")
			}
			return
		}
		printEvent(out, ev)
	})
	defer unsubscribe()

	err = a.acquire(ctx)
	defer a.manager.Release()
	if err != nil {
		return err
	}

	<-ctx.Done()
	fmt.Fprintln(out, "Interrupted, disconnecting...")
	return nil
}

// printEvent writes one colored line per lifecycle event
func printEvent(w io.Writer, ev link.Event) {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(w, "%s %s\n", color.New(color.Faint).Sprint(ts.Format("15:04:05.000")), statusColor(ev.Status).Sprint(ev.String()))
}

// printEventJSON writes the event as a single JSON line
func printEventJSON(w io.Writer, ev link.Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	return json.NewEncoder(w).Encode(ev)
}

func statusColor(s link.Status) *color.Color {
	switch s {
	case link.StatusConnected:
		return color.New(color.FgGreen, color.Bold)
	case link.StatusScanning, link.StatusConnecting:
		return color.New(color.FgYellow)
	case link.StatusError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}
