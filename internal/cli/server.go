package cli

import (
	"github.com/spf13/cobra"

	"github.com/radarmon/radar/internal/config"
	"github.com/radarmon/radar/internal/ident"
	"github.com/radarmon/radar/internal/plugin"
	"github.com/radarmon/radar/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Radar server",
	Long: `Run the Radar server in the foreground.

The server reads its main config, builds the monitors from the checks,
contacts and monitors directories, loads plugins and then accepts clients
until it receives SIGINT or SIGTERM.

Examples:
  radar server
  radar server --config /etc/radar/server/config/main.yml
  RADAR_POLLING_TIME=30 radar server --debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serverCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

// loadServerConfig finds, loads and validates the server main config.
// The returned path is empty when the defaults are in use.
func loadServerConfig() (*config.ServerConfig, string, error) {
	path, err := config.Find(cfgFile, config.ServerConfigFile, config.ServerBaseDir())
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadServer(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.ValidateServer(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func serverCommand(cmd *cobra.Command) error {
	cfg, path, err := loadServerConfig()
	if err != nil {
		return err
	}

	log, closer, err := openLogger(cfg.Log, "[server]")
	if err != nil {
		return err
	}
	defer closer.Close()

	if path == "" {
		log.Warn("No config file found, using the defaults.")
	} else {
		log.Info("Using config %s.", path)
	}

	defs, err := config.LoadDefinitions(cfg, ident.NewGenerator())
	if err != nil {
		return err
	}
	if len(defs.Monitors) == 0 {
		log.Warn("No monitors defined under %s. Every client will be rejected.", cfg.Monitors)
	}
	log.Info("Loaded %d check(s), %d contact(s) and %d monitor(s).", len(defs.Checks), len(defs.Contacts), len(defs.Monitors))

	loaded, err := plugin.Load(cfg.Plugins.Dir)
	if err != nil {
		return err
	}
	if len(loaded) > 0 {
		log.Info("Found plugin(s) %v in %s.", loaded, cfg.Plugins.Dir)
	}
	plugins, err := plugin.Build(cfg.Plugins.Enabled, cfg.PluginSettings())
	if err != nil {
		return err
	}

	settings, err := cfg.ServerSettings()
	if err != nil {
		return err
	}
	srv, err := server.New(settings, defs.Monitors, plugins, log)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	log.Info("Starting Radar server %s.", formatVersion(version))
	if err := srv.Run(ctx); err != nil {
		log.Error("%v", err)
		return err
	}
	log.Info("Radar server stopped.")
	return nil
}
