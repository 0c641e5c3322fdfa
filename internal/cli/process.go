package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/radarmon/radar/internal/config"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/logger"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openLogger opens the process log described by cfg. --debug forces debug
// output on.
func openLogger(cfg config.LogConfig, prefix string) (logger.Logger, io.Closer, error) {
	log, closer, err := logger.Open(cfg.To, prefix, cfg.Debug || debug)
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Error - Couldn't open log file '"+cfg.To+"'",
			"Check that the directory exists and is writable, or leave log.to empty to log to stderr")
	}
	return log, closer, nil
}

// createDirectories makes every non-empty directory in dirs.
func createDirectories(dirs []string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Error - Couldn't create directory '"+d+"'",
				"Check directory permissions or run as a user allowed to create it")
		}
	}
	return nil
}
