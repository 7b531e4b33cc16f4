package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// resolveLogLevel picks the log level from flags. It respects both --log-level and
// --verbose flags, with --log-level taking precedence; fallback applies when neither is set.
func resolveLogLevel(cmd *cobra.Command, verboseFlagName string, fallback string) (string, error) {
	// Check --log-level first (takes precedence)
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	if logLevelStr != "" {
		switch logLevelStr {
		case "debug", "info", "warn", "error":
			return logLevelStr, nil
		default:
			return "", fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
	}

	// Fall back to --verbose flag if no --log-level specified
	if verbose, _ := cmd.Flags().GetBool(verboseFlagName); verbose {
		return "debug", nil
	}
	return fallback, nil
}
