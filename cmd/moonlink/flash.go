package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// flashCmd represents the flash command
var flashCmd = &cobra.Command{
	Use:   "flash",
	Short: "Run the RGB test across every hold",
	Long: `Lights every hold in each test color in turn, pausing between colors.
E is red, P is blue and S is green on a standard board.

A color that fails to send is reported and the test moves on to the next one.

Examples:
  moonlink flash
  moonlink flash --colors S --holds 140 --gap 1s`,
	Args: cobra.NoArgs,
	RunE: runFlash,
}

var (
	flashHolds  int
	flashGap    time.Duration
	flashColors []string
)

func init() {
	flashCmd.Flags().IntVar(&flashHolds, "holds", 198, "Number of holds on the board")
	flashCmd.Flags().DurationVar(&flashGap, "gap", 400*time.Millisecond, "Pause between colors")
	flashCmd.Flags().StringSliceVar(&flashColors, "colors", []string{"E", "P", "S"}, "Hold color codes to flash, in order")
}

// flashPayload lights holds 0..holds-1 in colorCode, e.g. "l#E0,E1,E2#"
func flashPayload(colorCode string, holds int) string {
	var b strings.Builder
	b.WriteString("l#")
	for i := 0; i < holds; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(colorCode)
		b.WriteString(strconv.Itoa(i))
	}
	b.WriteByte('#')
	return b.String()
}

func runFlash(cmd *cobra.Command, _ []string) error {
	if flashHolds < 1 {
		return fmt.Errorf("--holds must be positive, got %d", flashHolds)
	}
	if len(flashColors) == 0 {
		return fmt.Errorf("--colors must name at least one color")
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
		return flashSequence(ctx, cmd, a.manager, flashColors, flashHolds, flashGap)
	})
}

// flashSequence sends one payload per color, pausing gap between them. Failures are
// reported and do not stop the sequence.
func flashSequence(ctx context.Context, cmd *cobra.Command, s payloadSender, colors []string, holds int, gap time.Duration) error {
	out := cmd.OutOrStdout()
	failed := 0

	for i, code := range colors {
		if i > 0 && gap > 0 {
			select {
			case <-time.After(gap):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		payload := flashPayload(code, holds)
		if err := s.Send(ctx, payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			fmt.Fprintf(out, "%s %s: %s\n", color.RedString("✗"), code, FormatUserError(err))
			continue
		}
		fmt.Fprintf(out, "%s %s: %d holds (%d bytes)\n", color.GreenString("✓"), code, holds, len(payload))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d colors failed", ErrFlashIncomplete, failed, len(colors))
	}
	return nil
}

// payloadSender is the part of the connection manager the flash test needs
type payloadSender interface {
	Send(ctx context.Context, payload string) error
}
