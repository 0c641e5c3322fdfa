package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/radarmon/radar/internal/errors"
)

const (
	// MainConfigFile is the main config file name inside a base directory.
	MainConfigFile = "main.yml"
	// ServerConfigFile is looked up in the current directory by the server.
	ServerConfigFile = "radar-server.yml"
	// ClientConfigFile is looked up in the current directory by the client.
	ClientConfigFile = "radar-client.yml"
	// EnvPrefix prefixes environment overrides, e.g. RADAR_LISTEN_PORT.
	EnvPrefix = "RADAR"
)

// Find locates a config file using the search order:
// 1. Explicit path (from --config flag)
// 2. localName in the current directory
// 3. main.yml in baseDir
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit, localName, baseDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, localName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	main := filepath.Join(baseDir, MainConfigFile)
	if _, err := os.Stat(main); err == nil {
		return main, nil
	}
	return "", nil
}

// LoadServer reads the server config at path. An empty path yields the
// defaults, still subject to environment overrides.
func LoadServer(path string) (*ServerConfig, error) {
	v := newViper()
	setServerDefaults(v, DefaultServerConfig())
	if err := read(v, path); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Error - Wrong Radar main config format.",
			"Check the YAML syntax in "+displayPath(path))
	}

	cfg.Checks = Expand(cfg.Checks)
	cfg.Contacts = Expand(cfg.Contacts)
	cfg.Monitors = Expand(cfg.Monitors)
	cfg.Plugins.Dir = Expand(cfg.Plugins.Dir)
	cfg.Log.To = Expand(cfg.Log.To)
	return cfg, nil
}

// LoadClient reads the client config at path. An empty path yields the
// defaults, still subject to environment overrides.
func LoadClient(path string) (*ClientConfig, error) {
	v := newViper()
	setClientDefaults(v, DefaultClientConfig())
	if err := read(v, path); err != nil {
		return nil, err
	}

	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Error - Wrong Radar main config format.",
			"Check the YAML syntax in "+displayPath(path))
	}

	cfg.Checks = Expand(cfg.Checks)
	cfg.Log.To = Expand(cfg.Log.To)
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'radar init' to create a config file, or specify one with --config")
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Error - Couldn't parse YAML file : '"+path+"'.",
			"Check the file exists and is valid YAML")
	}
	return nil
}

// setServerDefaults registers every key so environment overrides apply even
// when the file leaves the key out.
func setServerDefaults(v *viper.Viper, d *ServerConfig) {
	v.SetDefault("listen.address", d.Listen.Address)
	v.SetDefault("listen.port", d.Listen.Port)
	v.SetDefault("listen.backend", d.Listen.Backend)
	v.SetDefault("console.enabled", d.Console.Enabled)
	v.SetDefault("console.address", d.Console.Address)
	v.SetDefault("console.port", d.Console.Port)
	v.SetDefault("console.token_hash", d.Console.TokenHash)
	v.SetDefault("run_as.user", d.RunAs.User)
	v.SetDefault("run_as.group", d.RunAs.Group)
	v.SetDefault("polling_time", d.PollingTime)
	v.SetDefault("checks", d.Checks)
	v.SetDefault("contacts", d.Contacts)
	v.SetDefault("monitors", d.Monitors)
	v.SetDefault("plugins.dir", d.Plugins.Dir)
	v.SetDefault("plugins.enabled", d.Plugins.Enabled)
	v.SetDefault("log.to", d.Log.To)
	v.SetDefault("log.debug", d.Log.Debug)
}

func setClientDefaults(v *viper.Viper, d *ClientConfig) {
	v.SetDefault("connect.to", d.Connect.To)
	v.SetDefault("connect.port", d.Connect.Port)
	v.SetDefault("run_as.user", d.RunAs.User)
	v.SetDefault("run_as.group", d.RunAs.Group)
	v.SetDefault("check_timeout", d.CheckTimeout)
	v.SetDefault("check_concurrency", d.CheckConcurrency)
	v.SetDefault("enforce_ownership", d.EnforceOwnership)
	v.SetDefault("reconnect", d.Reconnect)
	v.SetDefault("checks", d.Checks)
	v.SetDefault("log.to", d.Log.To)
	v.SetDefault("log.debug", d.Log.Debug)
}

func displayPath(path string) string {
	if path == "" {
		return "the defaults"
	}
	return path
}
