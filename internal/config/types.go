package config

import (
	"path/filepath"
	"runtime"
)

const (
	// DefaultServerPort is where clients connect.
	DefaultServerPort = 3333
	// DefaultConsolePort is where console clients and the dashboard connect.
	DefaultConsolePort = 3334
	// DefaultPollingTime is the server's poll period in seconds.
	DefaultPollingTime = 300
	// DefaultCheckTimeout is the client's per-check limit in seconds.
	DefaultCheckTimeout = 5
	// DefaultCheckConcurrency is how many checks a client runs at once.
	DefaultCheckConcurrency = 5
)

// ServerConfig is the server's main configuration file.
type ServerConfig struct {
	Listen  ListenConfig  `yaml:"listen" mapstructure:"listen"`
	Console ConsoleConfig `yaml:"console" mapstructure:"console"`
	RunAs   RunAsConfig   `yaml:"run_as" mapstructure:"run_as"`

	// PollingTime is the period between polls, in seconds.
	PollingTime float64 `yaml:"polling_time" mapstructure:"polling_time"`

	// Checks, Contacts and Monitors are directories of definition files.
	Checks   string `yaml:"checks" mapstructure:"checks"`
	Contacts string `yaml:"contacts" mapstructure:"contacts"`
	Monitors string `yaml:"monitors" mapstructure:"monitors"`

	Plugins PluginsConfig `yaml:"plugins" mapstructure:"plugins"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ListenConfig is the server's client-facing socket.
type ListenConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	Port    int    `yaml:"port" mapstructure:"port"`

	// Backend forces a readiness backend: epoll, kqueue, poll or select.
	// Empty or "auto" picks the best one for the platform.
	Backend string `yaml:"backend,omitempty" mapstructure:"backend"`
}

// ConsoleConfig is the server's console socket.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Address string `yaml:"address" mapstructure:"address"`
	Port    int    `yaml:"port" mapstructure:"port"`

	// TokenHash is a bcrypt hash of the token console clients must send.
	TokenHash string `yaml:"token_hash,omitempty" mapstructure:"token_hash"`
}

// RunAsConfig names the account that owns check files.
type RunAsConfig struct {
	User  string `yaml:"user" mapstructure:"user"`
	Group string `yaml:"group" mapstructure:"group"`
}

// PluginsConfig selects the plugins the server runs.
type PluginsConfig struct {
	// Dir is searched for Go .so plugins.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Enabled lists plugin names in dispatch order.
	Enabled []string `yaml:"enabled" mapstructure:"enabled"`

	// Settings holds free-form options keyed by plugin name.
	Settings map[string]map[string]any `yaml:"settings,omitempty" mapstructure:"settings"`
}

// LogConfig controls the process log.
type LogConfig struct {
	// To is the log file. Empty logs to stderr.
	To    string `yaml:"to" mapstructure:"to"`
	Debug bool   `yaml:"debug" mapstructure:"debug"`
}

// ClientConfig is the client's main configuration file.
type ClientConfig struct {
	Connect ConnectConfig `yaml:"connect" mapstructure:"connect"`
	RunAs   RunAsConfig   `yaml:"run_as" mapstructure:"run_as"`

	CheckTimeout     float64 `yaml:"check_timeout" mapstructure:"check_timeout"`
	CheckConcurrency int     `yaml:"check_concurrency" mapstructure:"check_concurrency"`
	EnforceOwnership bool    `yaml:"enforce_ownership" mapstructure:"enforce_ownership"`
	Reconnect        bool    `yaml:"reconnect" mapstructure:"reconnect"`

	// Checks is the directory relative check paths are resolved against.
	Checks string `yaml:"checks" mapstructure:"checks"`

	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// ConnectConfig is the server a client connects to.
type ConnectConfig struct {
	To   string `yaml:"to" mapstructure:"to"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// ServerBaseDir is the default server configuration directory.
func ServerBaseDir() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\Radar\Server\Config`
	}
	return "/etc/radar/server/config"
}

// ClientBaseDir is the default client configuration directory.
func ClientBaseDir() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\Radar\Client\Config`
	}
	return "/etc/radar/client/config"
}

// DefaultServerConfig returns a ServerConfig with the defaults merged under
// every loaded file.
func DefaultServerConfig() *ServerConfig {
	base := ServerBaseDir()
	pluginsDir := "/usr/local/radar/server/plugins"
	if runtime.GOOS == "windows" {
		pluginsDir = filepath.Join(base, "Plugins")
	}
	return &ServerConfig{
		Listen: ListenConfig{Address: "0.0.0.0", Port: DefaultServerPort},
		Console: ConsoleConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    DefaultConsolePort,
		},
		RunAs:       RunAsConfig{User: "radar", Group: "radar"},
		PollingTime: DefaultPollingTime,
		Checks:      filepath.Join(base, "checks"),
		Contacts:    filepath.Join(base, "contacts"),
		Monitors:    filepath.Join(base, "monitors"),
		Plugins: PluginsConfig{
			Dir:     pluginsDir,
			Enabled: []string{"log"},
		},
	}
}

// DefaultClientConfig returns a ClientConfig with the defaults merged under
// every loaded file.
func DefaultClientConfig() *ClientConfig {
	checks := "/usr/local/radar/client/checks"
	if runtime.GOOS == "windows" {
		checks = filepath.Join(ClientBaseDir(), "Checks")
	}
	return &ClientConfig{
		Connect:          ConnectConfig{To: "localhost", Port: DefaultServerPort},
		RunAs:            RunAsConfig{User: "radar", Group: "radar"},
		CheckTimeout:     DefaultCheckTimeout,
		CheckConcurrency: DefaultCheckConcurrency,
		EnforceOwnership: true,
		Reconnect:        true,
		Checks:           checks,
	}
}
