package config

import (
	"fmt"
	"strings"

	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/network/poller"
)

// MinPollingTime is the shortest accepted server polling_time in seconds.
const MinPollingTime = 1

// ValidateServer checks the server config for errors and returns structured
// error messages.
func ValidateServer(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Server config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if err := validatePort("listen.port", cfg.Listen.Port); err != nil {
		return err
	}
	if _, err := poller.ParseBackend(cfg.Listen.Backend); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Unknown readiness backend '%s'", cfg.Listen.Backend),
			fmt.Sprintf("Use one of auto, %s", joinBackends(poller.Available())))
	}

	if cfg.Console.Enabled {
		if err := validatePort("console.port", cfg.Console.Port); err != nil {
			return err
		}
		if cfg.Console.Port == cfg.Listen.Port && cfg.Console.Address == cfg.Listen.Address {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Console and clients can't share %s:%d", cfg.Listen.Address, cfg.Listen.Port),
				"Pick a different console.port")
		}
		if cfg.Console.TokenHash != "" && !strings.HasPrefix(cfg.Console.TokenHash, "$2") {
			return errors.New(errors.ErrConfig,
				"console.token_hash is not a bcrypt hash",
				"Generate one with 'radar init server' or htpasswd -bnBC 10 '' <token>")
		}
	}

	if cfg.PollingTime < MinPollingTime {
		return errors.New(errors.ErrConfig,
			"Error - Polling time must be greater than 1 sec.",
			fmt.Sprintf("Set polling_time to %d or more (got %g)", MinPollingTime, cfg.PollingTime))
	}

	for key, dir := range map[string]string{"checks": cfg.Checks, "contacts": cfg.Contacts, "monitors": cfg.Monitors} {
		if strings.TrimSpace(dir) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Missing '%s' directory", key),
				fmt.Sprintf("Set %s to the directory holding your %s definitions", key, key))
		}
	}

	for _, name := range cfg.Plugins.Enabled {
		if strings.TrimSpace(name) == "" {
			return errors.New(errors.ErrConfig,
				"Empty plugin name in plugins.enabled",
				"Remove the empty entry or name a plugin")
		}
	}

	return nil
}

// ValidateClient checks the client config for errors.
func ValidateClient(cfg *ClientConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Client config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if strings.TrimSpace(cfg.Connect.To) == "" {
		return errors.New(errors.ErrConfig,
			"Missing connect.to",
			"Set connect.to to the address of the Radar server")
	}
	if err := validatePort("connect.port", cfg.Connect.Port); err != nil {
		return err
	}

	if cfg.CheckTimeout < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("check_timeout must be at least 1 second (got %g)", cfg.CheckTimeout),
			"Set check_timeout to 1 or more")
	}
	if cfg.CheckConcurrency < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("check_concurrency must be at least 1 (got %d)", cfg.CheckConcurrency),
			"Set check_concurrency to 1 or more")
	}

	if cfg.EnforceOwnership && (cfg.RunAs.User == "" || cfg.RunAs.Group == "") {
		return errors.New(errors.ErrConfig,
			"enforce_ownership needs run_as.user and run_as.group",
			"Set both, or turn enforce_ownership off")
	}

	return nil
}

func validatePort(key string, port int) error {
	if port < 1 || port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must be between 1 and 65535 (got %d)", key, port),
			"Pick a free TCP port")
	}
	return nil
}

func joinBackends(bs []poller.Backend) string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}
