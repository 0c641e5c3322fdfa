package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radarmon/radar/internal/ui"
)

// Global flags
var (
	cfgFile string
	noColor bool
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Distributed host monitoring",
	Long: `Radar polls monitored hosts for health-check results.

The server keeps a connection to every client, polls them periodically and
hands the replies to plugins. Clients run the requested checks and send the
results back. The console and the dashboard talk to a running server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./radar-<role>.yml, then the platform config directory)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug messages")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if isUnknownCommandError(err) {
			if name := extractUnknownCommand(err); name != "" {
				fmt.Fprintf(os.Stderr, "Unknown command '%s'. Run 'radar --help' to see what's available.\n", name)
			} else {
				fmt.Fprintf(os.Stderr, "%v\nRun 'radar --help' for usage.\n", err)
			}
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// isUnknownCommandError reports whether err is cobra's usage error for an
// unknown command or flag.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand returns the quoted name in cobra's
// `unknown command "foo" for "radar"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
