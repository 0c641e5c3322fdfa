package check

import (
	"sort"
	"strings"

	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/ident"
)

// Entry is anything a monitor can watch: a single check or a group.
type Entry interface {
	Identity() string
	Hash() uint64
	UpdateStatus(u StatusUpdate) bool
	Enable(ids []int) bool
	Disable(ids []int) bool
	Requests() []Request
	Flatten() []*Check
	CloneEntry() Entry
}

// Group is a named, deduplicated collection of checks and nested groups.
type Group struct {
	ident.Switchable
	Name    string
	Members []Entry
}

// NewGroup creates an enabled group. Members with the same identity are
// collapsed, keeping the first one.
func NewGroup(id int, name string, members []Entry) (*Group, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCheck, "Missing name from check group definition", "")
	}
	members = Dedup(members)
	if len(members) == 0 {
		return nil, errors.New(errors.ErrCheck,
			"Check group '"+name+"' has no checks",
			"List at least one check under the group")
	}
	return &Group{
		Switchable: ident.Switchable{ID: id, Enabled: true},
		Name:       name,
		Members:    members,
	}, nil
}

// Identity combines the group name with its member identities.
func (g *Group) Identity() string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.Identity()
	}
	sort.Strings(ids)
	return "group\x00" + g.Name + "\x00" + strings.Join(ids, "\x01")
}

func (g *Group) Hash() uint64 {
	return hashString(g.Identity())
}

// UpdateStatus offers u to every member while the group is enabled.
func (g *Group) UpdateStatus(u StatusUpdate) bool {
	if !g.Enabled {
		return false
	}
	updated := false
	for _, m := range g.Members {
		if m.UpdateStatus(u) {
			updated = true
		}
	}
	return updated
}

// Enable switches the group and any listed member on.
func (g *Group) Enable(ids []int) bool {
	hit := g.Switchable.Enable(ids)
	for _, m := range g.Members {
		if m.Enable(ids) {
			hit = true
		}
	}
	return hit
}

// Disable switches the group and any listed member off.
func (g *Group) Disable(ids []int) bool {
	hit := g.Switchable.Disable(ids)
	for _, m := range g.Members {
		if m.Disable(ids) {
			hit = true
		}
	}
	return hit
}

// Requests returns the requests of every enabled member, or none when the
// group itself is disabled.
func (g *Group) Requests() []Request {
	if !g.Enabled {
		return nil
	}
	var out []Request
	for _, m := range g.Members {
		out = append(out, m.Requests()...)
	}
	return out
}

// Flatten returns every leaf check in the group.
func (g *Group) Flatten() []*Check {
	var out []*Check
	for _, m := range g.Members {
		out = append(out, m.Flatten()...)
	}
	return out
}

func (g *Group) CloneEntry() Entry {
	cp := &Group{Switchable: g.Switchable, Name: g.Name, Members: make([]Entry, len(g.Members))}
	for i, m := range g.Members {
		cp.Members[i] = m.CloneEntry()
	}
	return cp
}

// Dedup drops entries whose identity has already been seen.
func Dedup(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		id := e.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, e)
	}
	return out
}

// Requests serializes every enabled entry into one request list.
func Requests(entries []Entry) []Request {
	var out []Request
	for _, e := range entries {
		out = append(out, e.Requests()...)
	}
	return out
}

// Flatten returns every leaf check of entries.
func Flatten(entries []Entry) []*Check {
	var out []*Check
	for _, e := range entries {
		out = append(out, e.Flatten()...)
	}
	return out
}
