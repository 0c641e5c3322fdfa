package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/radarmon/radar/internal/errors"
)

// Write marshals cfg as YAML to path, creating parent directories. An
// existing file is only replaced when overwrite is set.
func Write(path string, cfg any, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s already exists", path),
				"Use --force to overwrite it")
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't encode the configuration", "")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't create %s", filepath.Dir(path)),
			"Check directory permissions")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't write %s", path),
			"Check file permissions")
	}
	return nil
}

// ServerDirectories lists the directories a server config refers to.
func ServerDirectories(cfg *ServerConfig) []string {
	dirs := []string{cfg.Checks, cfg.Contacts, cfg.Monitors, cfg.Plugins.Dir}
	if cfg.Log.To != "" {
		dirs = append(dirs, filepath.Dir(cfg.Log.To))
	}
	return dirs
}

// ClientDirectories lists the directories a client config refers to.
func ClientDirectories(cfg *ClientConfig) []string {
	dirs := []string{cfg.Checks}
	if cfg.Log.To != "" {
		dirs = append(dirs, filepath.Dir(cfg.Log.To))
	}
	return dirs
}
