package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/radarmon/radar/internal/address"
	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/contact"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/ident"
	"github.com/radarmon/radar/internal/registry"
)

// Definition file entry tags.
const (
	TagCheck        = "check"
	TagCheckGroup   = "check group"
	TagContact      = "contact"
	TagContactGroup = "contact group"
	TagMonitor      = "monitor"
)

// Definitions is everything the server's definition directories describe.
type Definitions struct {
	Checks   []check.Entry
	Contacts []contact.Entry
	Monitors []*registry.Monitor
}

type checkDef struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Args    string `yaml:"args"`
	Enabled *bool  `yaml:"enabled"`
}

type contactDef struct {
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
	Enabled *bool  `yaml:"enabled"`
}

type groupDef struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

type monitorDef struct {
	Name    string   `yaml:"name"`
	Hosts   []string `yaml:"hosts"`
	Watch   []string `yaml:"watch"`
	Notify  []string `yaml:"notify"`
	Enabled *bool    `yaml:"enabled"`
}

// LoadDefinitions reads the checks, contacts and monitors directories of cfg.
// Every entity gets its id from gen, in directory walk order.
func LoadDefinitions(cfg *ServerConfig, gen *ident.Generator) (*Definitions, error) {
	checks, err := LoadChecks(cfg.Checks, gen)
	if err != nil {
		return nil, err
	}
	contacts, err := LoadContacts(cfg.Contacts, gen)
	if err != nil {
		return nil, err
	}
	monitors, err := LoadMonitors(cfg.Monitors, checks, contacts, gen)
	if err != nil {
		return nil, err
	}
	return &Definitions{Checks: checks, Contacts: contacts, Monitors: monitors}, nil
}

// LoadChecks builds every check and check group found under dir.
func LoadChecks(dir string, gen *ident.Generator) ([]check.Entry, error) {
	var out []check.Entry
	err := eachDefinitionFile(dir, func(path string, items []*yaml.Node) error {
		for _, n := range tagged(items, TagCheck) {
			c, err := buildCheck(n, path, gen)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		for _, n := range tagged(items, TagCheckGroup) {
			g, err := buildCheckGroup(n, path, gen)
			if err != nil {
				return err
			}
			out = append(out, g)
		}
		return nil
	})
	return out, err
}

// LoadContacts builds every contact and contact group found under dir.
func LoadContacts(dir string, gen *ident.Generator) ([]contact.Entry, error) {
	var out []contact.Entry
	err := eachDefinitionFile(dir, func(path string, items []*yaml.Node) error {
		for _, n := range tagged(items, TagContact) {
			c, err := buildContact(n, path, gen)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		for _, n := range tagged(items, TagContactGroup) {
			g, err := buildContactGroup(n, path, gen)
			if err != nil {
				return err
			}
			out = append(out, g)
		}
		return nil
	})
	return out, err
}

// LoadMonitors builds every monitor found under dir. Monitors reference
// checks through watch and contacts through notify, by name.
func LoadMonitors(dir string, checks []check.Entry, contacts []contact.Entry, gen *ident.Generator) ([]*registry.Monitor, error) {
	var out []*registry.Monitor
	err := eachDefinitionFile(dir, func(path string, items []*yaml.Node) error {
		for _, n := range tagged(items, TagMonitor) {
			m, err := buildMonitor(n, path, checks, contacts, gen)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

// eachDefinitionFile walks dir for regular files and hands every file's
// entries to fn.
func eachDefinitionFile(dir string, fn func(path string, items []*yaml.Node) error) error {
	if _, err := os.Stat(dir); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Error - Couldn't read definitions directory '%s'", dir),
			"Create the directory or point the main config at the right one")
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Error - Couldn't read '%s'", path), "")
		}
		if !d.Type().IsRegular() {
			return nil
		}
		items, err := readDefinitions(path)
		if err != nil {
			return err
		}
		return fn(path, items)
	})
}

func readDefinitions(path string) ([]*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Error - Couldn't read '%s'", path), "")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Error - Couldn't parse YAML file : '%s'", path),
			"Check the YAML syntax")
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	lowerKeys(root)
	if root.Kind != yaml.SequenceNode {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Error - Wrong definitions format in '%s'", path),
			"Definition files are lists of '- check:', '- contact:', '- monitor:' entries")
	}
	return root.Content, nil
}

// tagged returns the bodies of the items keyed by tag.
func tagged(items []*yaml.Node, tag string) []*yaml.Node {
	var out []*yaml.Node
	for _, item := range items {
		if v := findMapValue(item, tag); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func missing(key, what, path string) error {
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Error - Missing '%s' while creating %s from %s.", key, what, path),
		"")
}

func decode(n *yaml.Node, v any, what, path string) error {
	if err := n.Decode(v); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Error - Wrong %s definition in %s", what, path), "")
	}
	return nil
}

func enabled(b *bool) bool {
	return b == nil || *b
}

func buildCheck(n *yaml.Node, path string, gen *ident.Generator) (*check.Check, error) {
	if k := missingKey(n, "name", "path"); k != "" {
		return nil, missing(k, "check", path)
	}
	var d checkDef
	if err := decode(n, &d, "check", path); err != nil {
		return nil, err
	}

	c, err := check.New(gen.Next(), d.Name, d.Path, d.Args)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, fmt.Sprintf("Error - Invalid check in %s", path), "")
	}
	c.Enabled = enabled(d.Enabled)
	return c, nil
}

func buildCheckGroup(n *yaml.Node, path string, gen *ident.Generator) (*check.Group, error) {
	if k := missingKey(n, "name", "checks"); k != "" {
		return nil, missing(k, "check group", path)
	}
	var d groupDef
	if err := decode(n, &d, "check group", path); err != nil {
		return nil, err
	}

	var members []check.Entry
	for _, m := range tagged(findMapValue(n, "checks").Content, TagCheck) {
		c, err := buildCheck(m, path, gen)
		if err != nil {
			return nil, err
		}
		members = append(members, c)
	}

	g, err := check.NewGroup(gen.Next(), d.Name, members)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, fmt.Sprintf("Error - Invalid check group in %s", path), "")
	}
	g.Enabled = enabled(d.Enabled)
	return g, nil
}

func buildContact(n *yaml.Node, path string, gen *ident.Generator) (*contact.Contact, error) {
	if k := missingKey(n, "name", "email"); k != "" {
		return nil, missing(k, "contact", path)
	}
	var d contactDef
	if err := decode(n, &d, "contact", path); err != nil {
		return nil, err
	}

	c, err := contact.New(gen.Next(), d.Name, d.Email, d.Phone)
	if err != nil {
		return nil, err
	}
	c.Enabled = enabled(d.Enabled)
	return c, nil
}

func buildContactGroup(n *yaml.Node, path string, gen *ident.Generator) (*contact.Group, error) {
	if k := missingKey(n, "name", "contacts"); k != "" {
		return nil, missing(k, "contact group", path)
	}
	var d groupDef
	if err := decode(n, &d, "contact group", path); err != nil {
		return nil, err
	}

	var members []contact.Entry
	for _, m := range tagged(findMapValue(n, "contacts").Content, TagContact) {
		c, err := buildContact(m, path, gen)
		if err != nil {
			return nil, err
		}
		members = append(members, c)
	}

	g, err := contact.NewGroup(gen.Next(), d.Name, members)
	if err != nil {
		return nil, err
	}
	g.Enabled = enabled(d.Enabled)
	return g, nil
}

func buildMonitor(n *yaml.Node, path string, checks []check.Entry, contacts []contact.Entry, gen *ident.Generator) (*registry.Monitor, error) {
	if k := missingKey(n, "hosts", "watch"); k != "" {
		return nil, missing(k, "monitor", path)
	}
	var d monitorDef
	if err := decode(n, &d, "monitor", path); err != nil {
		return nil, err
	}

	addrs := make([]address.Pattern, 0, len(d.Hosts))
	for _, h := range d.Hosts {
		p, err := address.Parse(h)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Error - Invalid host '%s' in monitor '%s' from %s", h, d.Name, path),
				"Use an address, a hostname or a range like 10.0.0.1-10.0.0.10")
		}
		addrs = append(addrs, p)
	}

	watched, err := pickChecks(checks, d.Watch)
	if err != nil {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Error - Monitor '%s' from %s %s", d.Name, path, err.Error()),
			"Define the check in the checks directory or fix the name under watch")
	}
	notified, err := pickContacts(contacts, d.Notify)
	if err != nil {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Error - Monitor '%s' from %s %s", d.Name, path, err.Error()),
			"Define the contact in the contacts directory or fix the name under notify")
	}

	m, err := registry.NewMonitor(gen.Next(), d.Name, addrs, watched, notified)
	if err != nil {
		return nil, err
	}
	m.Enabled = enabled(d.Enabled)
	return m, nil
}

func checkName(e check.Entry) string {
	switch v := e.(type) {
	case *check.Check:
		return v.Name
	case *check.Group:
		return v.Name
	}
	return ""
}

func contactName(e contact.Entry) string {
	switch v := e.(type) {
	case *contact.Contact:
		return v.Name
	case *contact.Group:
		return v.Name
	}
	return ""
}

// pickChecks returns every entry whose name is listed, in definition order.
func pickChecks(all []check.Entry, names []string) ([]check.Entry, error) {
	found := map[string]bool{}
	var out []check.Entry
	for _, e := range all {
		name := checkName(e)
		if contains(names, name) {
			found[name] = true
			out = append(out, e)
		}
	}
	for _, name := range names {
		if !found[name] {
			return nil, fmt.Errorf("watches unknown check '%s'", name)
		}
	}
	return out, nil
}

func pickContacts(all []contact.Entry, names []string) ([]contact.Entry, error) {
	found := map[string]bool{}
	var out []contact.Entry
	for _, e := range all {
		name := contactName(e)
		if contains(names, name) {
			found[name] = true
			out = append(out, e)
		}
	}
	for _, name := range names {
		if !found[name] {
			return nil, fmt.Errorf("notifies unknown contact '%s'", name)
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
