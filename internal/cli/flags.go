package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/radarmon/radar/internal/config"
	"github.com/radarmon/radar/internal/errors"
)

// MinWatchInterval keeps the dashboard from flooding the console.
const MinWatchInterval = 500 * time.Millisecond

// ConsoleFlags holds the flags shared by console and watch.
type ConsoleFlags struct {
	Address string
	Port    int
	Token   string
}

// AddConsoleFlags registers --address, --port and --token on a command.
func AddConsoleFlags(cmd *cobra.Command, flags *ConsoleFlags) {
	cmd.Flags().StringVarP(&flags.Address, "address", "a", "", "console address (default from the server config)")
	cmd.Flags().IntVarP(&flags.Port, "port", "p", 0, "console port (default from the server config)")
	cmd.Flags().StringVarP(&flags.Token, "token", "t", "", "console token (default $RADAR_CONSOLE_TOKEN)")
}

// Resolve fills unset flags from the server config, when one can be found,
// and then from the built-in defaults.
func (f ConsoleFlags) Resolve() ConsoleFlags {
	out := f
	cfg := config.DefaultServerConfig()
	if path, err := config.Find(cfgFile, config.ServerConfigFile, config.ServerBaseDir()); err == nil && path != "" {
		if loaded, err := config.LoadServer(path); err == nil {
			cfg = loaded
		}
	}
	if out.Address == "" {
		out.Address = cfg.Console.Address
	}
	if out.Port == 0 {
		out.Port = cfg.Console.Port
	}
	if out.Token == "" {
		out.Token = os.Getenv("RADAR_CONSOLE_TOKEN")
	}
	return out
}

// Target is the host:port shown to the user.
func (f ConsoleFlags) Target() string {
	return fmt.Sprintf("%s:%d", f.Address, f.Port)
}

// ParseInterval parses a refresh interval flag. An empty flag yields def.
func ParseInterval(flag string, def time.Duration) (time.Duration, error) {
	if flag == "" {
		return def, nil
	}

	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 2s, 5s, or 1m.")
	}
	if d < MinWatchInterval {
		return 0, errors.New(errors.ErrConfig,
			"Interval too short",
			fmt.Sprintf("Minimum interval is %s", MinWatchInterval))
	}
	return d, nil
}
