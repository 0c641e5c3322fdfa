package config

import (
	"time"

	"github.com/radarmon/radar/internal/client"
	"github.com/radarmon/radar/internal/console"
	"github.com/radarmon/radar/internal/engine"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/network/poller"
	"github.com/radarmon/radar/internal/plugin"
	"github.com/radarmon/radar/internal/server"
)

// ServerSettings converts the file into server process settings.
func (c *ServerConfig) ServerSettings() (server.Config, error) {
	backend, err := poller.ParseBackend(c.Listen.Backend)
	if err != nil {
		return server.Config{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Unknown readiness backend '"+c.Listen.Backend+"'", "")
	}

	out := server.Config{
		Address:     c.Listen.Address,
		Port:        c.Listen.Port,
		Backend:     backend,
		PollingTime: seconds(c.PollingTime),
		QueueSize:   server.DefaultQueueSize,
	}
	if c.Console.Enabled {
		out.Console = &console.Config{
			Address:   c.Console.Address,
			Port:      c.Console.Port,
			Backend:   backend,
			TokenHash: c.Console.TokenHash,
		}
	}
	return out, nil
}

// PluginSettings returns plugins.settings in the shape plugin.Build takes.
func (c *ServerConfig) PluginSettings() map[string]plugin.Settings {
	out := make(map[string]plugin.Settings, len(c.Plugins.Settings))
	for name, s := range c.Plugins.Settings {
		out[name] = plugin.Settings(s)
	}
	return out
}

// ClientSettings converts the file into client process settings.
func (c *ClientConfig) ClientSettings() client.Config {
	return client.Config{
		Address:   c.Connect.To,
		Port:      c.Connect.Port,
		Reconnect: c.Reconnect,
		Engine: engine.Config{
			Timeout:          c.CheckTimeout,
			Concurrency:      c.CheckConcurrency,
			ChecksDir:        c.Checks,
			EnforceOwnership: c.EnforceOwnership,
			RunAsUser:        c.RunAs.User,
			RunAsGroup:       c.RunAs.Group,
		},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
