package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radarmon/radar/internal/console"
)

var consoleFlags ConsoleFlags

var consoleCmd = &cobra.Command{
	Use:   "console [action]",
	Short: "Query a running server",
	Long: `Connect to the console of a running Radar server.

Without an action an interactive prompt is opened. With an action the query
is sent once and the reply printed.

Actions:
  list()            Show monitors, clients and checks
  list(1, 2)        Only monitors 1 and 2
  enable(7)         Enable checks, contacts or monitors by id
  disable(7, 8)     Disable them
  test(7)           Run checks now and report through the plugins

Examples:
  radar console
  radar console 'list()'
  radar console --address 10.0.0.1 --port 3334 'disable(7)'`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return consoleCommand(cmd, consoleFlags.Resolve(), strings.Join(args, " "))
	},
}

func init() {
	AddConsoleFlags(consoleCmd, &consoleFlags)
	rootCmd.AddCommand(consoleCmd)
}

func consoleCommand(cmd *cobra.Command, flags ConsoleFlags, action string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	c := console.NewClient(flags.Address, flags.Port, flags.Token)
	if err := c.Dial(ctx); err != nil {
		return err
	}
	defer c.Close()

	if strings.TrimSpace(action) != "" {
		return queryOnce(ctx, c, action, cmd)
	}
	return console.REPL(ctx, c, cmd.InOrStdin(), cmd.OutOrStdout())
}

func queryOnce(ctx context.Context, q console.Querier, action string, cmd *cobra.Command) error {
	reply, err := q.Query(ctx, action)
	if err != nil {
		return err
	}
	console.Render(cmd.OutOrStdout(), reply)
	return nil
}
