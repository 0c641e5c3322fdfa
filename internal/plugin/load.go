package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"
	"sort"
	"strings"

	"github.com/radarmon/radar/internal/errors"
)

// Symbol is the name every .so plugin must export. Its type must be
// func(plugin.Settings) (plugin.Plugin, error).
const Symbol = "NewPlugin"

// Load opens every *.so file in dir and registers its factory under the file
// name without extension. A missing dir is not an error.
func Load(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrPlugin,
			fmt.Sprintf("couldn't read plugins directory %s", dir), "")
	}

	var loaded []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := open(path)
		if err != nil {
			return loaded, err
		}
		name := strings.TrimSuffix(e.Name(), ".so")
		Register(name, f)
		loaded = append(loaded, name)
	}
	sort.Strings(loaded)
	return loaded, nil
}

func open(path string) (Factory, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrPlugin,
			fmt.Sprintf("couldn't open plugin %s", path),
			"Plugins must be built with go build -buildmode=plugin against the same radar version")
	}
	sym, err := p.Lookup(Symbol)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrPlugin,
			fmt.Sprintf("plugin %s does not export %s", path, Symbol), "")
	}

	switch f := sym.(type) {
	case func(Settings) (Plugin, error):
		return f, nil
	case *Factory:
		return *f, nil
	}
	return nil, errors.New(errors.ErrPlugin,
		fmt.Sprintf("plugin %s: %s has type %T", path, Symbol, sym),
		"Export func NewPlugin(plugin.Settings) (plugin.Plugin, error)")
}
