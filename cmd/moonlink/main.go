package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moonlink",
	Short: "MoonBoard LED controller over Bluetooth Low Energy",
	Long: `Connects to a MoonBoard LED controller over Bluetooth Low Energy and streams
commands to it:

- Send a single hold pattern or any raw command
- Run the RGB flash test across every hold
- Watch the connection lifecycle as it happens
- Bridge the board to a PTY so any serial tool can drive it

The board is found by advertised name, one connection is shared by every
command running in the process, and payloads are written in small paced chunks.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		// Print user-friendly error message
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(configCmd)

	registerGlobalFlags(rootCmd)

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}

// registerGlobalFlags adds the flags every command shares
func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("verbose", false, "Enable debug logging (same as --log-level=debug)")
	flags.String("backend", "", "Bluetooth backend (auto, goble, tinygo)")
	flags.String("device-name", "", "Advertised name fragment identifying the board (default \"moonboard\")")
	flags.Duration("scan-timeout", 0, "How long to scan for the board (default 30s)")
	flags.Int("chunk-size", 0, "Bytes per BLE write, 1-20 (default 20)")
	flags.Duration("delay", 0, "Pause between chunk writes")
}
