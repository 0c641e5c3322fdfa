package server

import (
	"fmt"
	"time"

	"github.com/radarmon/radar/internal/console"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/network/poller"
)

const (
	// MinPollingTime is the shortest accepted polling interval.
	MinPollingTime = time.Second
	// DefaultQueueSize bounds the fan-out channel to the plugin manager.
	DefaultQueueSize = 1024
)

// Config holds the settings of a server process.
type Config struct {
	Address     string
	Port        int
	Backend     poller.Backend
	PollingTime time.Duration
	// Console is nil when the console listener is disabled.
	Console   *console.Config
	QueueSize int
}

// Validate checks ranges. Errors carry the CONFIG code.
func (c Config) Validate() error {
	if c.PollingTime < MinPollingTime {
		return errors.New(errors.ErrConfig,
			"Error - Polling time must be greater than 1 sec.",
			"Set polling_time to a number of seconds, 1 or more")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Error - '%d' is not a valid listen port.", c.Port),
			"Set listen.port between 1 and 65535")
	}
	if c.Console != nil && (c.Console.Port < 0 || c.Console.Port > 65535) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Error - '%d' is not a valid console port.", c.Console.Port),
			"Set console.port between 1 and 65535")
	}
	return nil
}
