package cli

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/radarmon/radar/internal/console"
	"github.com/radarmon/radar/internal/dashboard"
	"github.com/radarmon/radar/internal/errors"
)

var (
	watchFlags    ConsoleFlags
	watchInterval string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of a running server",
	Long: `Start an interactive TUI dashboard showing every monitor, its connected
clients and the latest status of their checks.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Force refresh
  up/k        Select previous check
  down/j      Select next check
  Space       Enable / disable selected check
  t           Run selected check now
  ?           Show help

Examples:
  radar watch
  radar watch --interval 2s
  radar watch --address 10.0.0.1 --token s3cret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, err := ParseInterval(watchInterval, dashboard.DefaultInterval)
		if err != nil {
			return err
		}
		return watchCommand(cmd, watchFlags.Resolve(), interval)
	},
}

func init() {
	AddConsoleFlags(watchCmd, &watchFlags)
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "refresh interval (e.g., 2s, 5s, 1m)")
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(cmd *cobra.Command, flags ConsoleFlags, interval time.Duration) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	c := console.NewClient(flags.Address, flags.Port, flags.Token)
	if err := c.Dial(ctx); err != nil {
		return err
	}
	defer c.Close()

	model := dashboard.NewModel(c, interval, flags.Target())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return errors.WrapWithCode(err, errors.ErrConsole, "Dashboard stopped unexpectedly", "")
	}
	return nil
}
