package engine

import (
	"fmt"
	"time"

	"github.com/radarmon/radar/internal/errors"
)

// Config controls check scheduling and execution.
type Config struct {
	// Timeout is the maximum execution time of a check in seconds.
	Timeout float64
	// Concurrency is the number of checks allowed to run at once.
	Concurrency int
	// ChecksDir is prepended to relative check paths.
	ChecksDir string

	EnforceOwnership bool
	RunAsUser        string
	RunAsGroup       string
}

// Validate reports the first out of range setting.
func (c Config) Validate() error {
	if c.Timeout < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("check timeout must be at least 1 second (got %g)", c.Timeout),
			"Set check_timeout to 1 or more in the client configuration")
	}
	if c.Concurrency < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("check concurrency must be at least 1 (got %d)", c.Concurrency),
			"Set check_concurrency to 1 or more in the client configuration")
	}
	return nil
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.Timeout * float64(time.Second))
}
