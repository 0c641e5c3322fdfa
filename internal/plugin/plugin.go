// Package plugin dispatches check replies to server-side handlers. Plugins
// are registered by name at build time or loaded from Go .so files, and are
// driven by a Manager that consumes the server's fan-out queue.
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/contact"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/protocol"
)

// Reply is what a plugin receives for one client reply and one monitor.
type Reply struct {
	Address  string            `json:"address"`
	Port     int               `json:"port"`
	Type     protocol.Type     `json:"-"`
	Checks   []check.Check     `json:"checks"`
	Contacts []contact.Contact `json:"contacts"`
}

// Plugin handles replies. Start is called once before any reply and
// Shutdown once when the server stops.
type Plugin interface {
	Name() string
	Version() string
	Start(log logger.Logger) error
	OnCheckReply(r Reply) error
	OnTestReply(r Reply) error
	Shutdown() error
}

// Settings is the free-form configuration of one plugin, taken from
// plugins.settings.<name>.
type Settings map[string]any

// String returns the string stored under key, or def.
func (s Settings) String(key, def string) string {
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok && str != "" {
			return str
		}
	}
	return def
}

// Bool returns the boolean stored under key, or def.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Factory builds a plugin from its settings.
type Factory func(Settings) (Plugin, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a factory available under name. A later registration
// replaces an earlier one.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Names lists the registered plugin names in order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build instantiates the enabled plugins in order.
func Build(enabled []string, settings map[string]Settings) ([]Plugin, error) {
	var out []Plugin
	for _, name := range enabled {
		f, ok := Lookup(name)
		if !ok {
			return nil, errors.New(errors.ErrPlugin,
				fmt.Sprintf("plugin '%s' is not available", name),
				fmt.Sprintf("Known plugins: %v. Put .so plugins in plugins.dir", Names()))
		}
		p, err := f(settings[name])
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrPlugin,
				fmt.Sprintf("couldn't create plugin '%s'", name), "")
		}
		out = append(out, p)
	}
	return out, nil
}
