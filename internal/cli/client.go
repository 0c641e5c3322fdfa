package cli

import (
	"github.com/spf13/cobra"

	"github.com/radarmon/radar/internal/client"
	"github.com/radarmon/radar/internal/config"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run a Radar client",
	Long: `Run a Radar client in the foreground.

The client connects to the server named in connect.to / connect.port, runs
the checks the server asks for and sends the results back. With reconnect
enabled it retries after 5, 15 and 60 seconds when the server goes away.

Examples:
  radar client
  radar client --config ./radar-client.yml
  RADAR_CONNECT_TO=10.0.0.1 radar client`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return clientCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
}

func loadClientConfig() (*config.ClientConfig, string, error) {
	path, err := config.Find(cfgFile, config.ClientConfigFile, config.ClientBaseDir())
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadClient(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.ValidateClient(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func clientCommand(cmd *cobra.Command) error {
	cfg, path, err := loadClientConfig()
	if err != nil {
		return err
	}

	log, closer, err := openLogger(cfg.Log, "[client]")
	if err != nil {
		return err
	}
	defer closer.Close()

	if path == "" {
		log.Warn("No config file found, using the defaults.")
	} else {
		log.Info("Using config %s.", path)
	}

	c, err := client.New(cfg.ClientSettings(), log)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	log.Info("Starting Radar client %s.", formatVersion(version))
	if err := c.Run(ctx); err != nil {
		log.Error("%v", err)
		return err
	}
	log.Info("Radar client stopped.")
	return nil
}
