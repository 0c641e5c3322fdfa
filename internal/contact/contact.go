// Package contact models the people notified about check changes.
package contact

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/ident"
)

// Contact is someone to notify when a watched check changes.
type Contact struct {
	ident.Switchable
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Entry is a single contact or a contact group.
type Entry interface {
	Identity() string
	Enable(ids []int) bool
	Disable(ids []int) bool
	Flatten() []*Contact
	CloneEntry() Entry
}

// New creates an enabled contact.
func New(id int, name, email, phone string) (*Contact, error) {
	if name == "" || email == "" {
		return nil, errors.New(errors.ErrConfig,
			"Missing name and/or email from contact definition",
			"Every contact needs both a name and an email")
	}
	return &Contact{
		Switchable: ident.Switchable{ID: id, Enabled: true},
		Name:       name,
		Email:      email,
		Phone:      phone,
	}, nil
}

func (c *Contact) Identity() string {
	return strings.Join([]string{"contact", c.Name, c.Email, c.Phone}, "\x00")
}

// Hash is an FNV-64a digest of the identity.
func (c *Contact) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(c.Identity()))
	return h.Sum64()
}

func (c *Contact) Clone() *Contact {
	cp := *c
	return &cp
}

func (c *Contact) Flatten() []*Contact {
	return []*Contact{c}
}

func (c *Contact) CloneEntry() Entry {
	return c.Clone()
}

// Group is a named, deduplicated set of contacts.
type Group struct {
	ident.Switchable
	Name    string
	Members []Entry
}

// NewGroup creates an enabled contact group.
func NewGroup(id int, name string, members []Entry) (*Group, error) {
	if name == "" {
		return nil, errors.New(errors.ErrConfig, "Missing name from contact group definition", "")
	}
	members = Dedup(members)
	if len(members) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"Contact group '"+name+"' has no contacts",
			"List at least one contact under the group")
	}
	return &Group{
		Switchable: ident.Switchable{ID: id, Enabled: true},
		Name:       name,
		Members:    members,
	}, nil
}

func (g *Group) Identity() string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.Identity()
	}
	sort.Strings(ids)
	return "group\x00" + g.Name + "\x00" + strings.Join(ids, "\x01")
}

func (g *Group) Enable(ids []int) bool {
	hit := g.Switchable.Enable(ids)
	for _, m := range g.Members {
		if m.Enable(ids) {
			hit = true
		}
	}
	return hit
}

func (g *Group) Disable(ids []int) bool {
	hit := g.Switchable.Disable(ids)
	for _, m := range g.Members {
		if m.Disable(ids) {
			hit = true
		}
	}
	return hit
}

// Flatten returns every leaf contact. A disabled group contributes its
// members disabled so they are never notified.
func (g *Group) Flatten() []*Contact {
	var out []*Contact
	for _, m := range g.Members {
		for _, c := range m.Flatten() {
			if !g.Enabled {
				c = c.Clone()
				c.Enabled = false
			}
			out = append(out, c)
		}
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
		if e == nil || seen[e.Identity()] {
			continue
		}
		seen[e.Identity()] = true
		out = append(out, e)
	}
	return out
}

// Flatten returns every leaf contact of entries.
func Flatten(entries []Entry) []*Contact {
	var out []*Contact
	for _, e := range entries {
		out = append(out, e.Flatten()...)
	}
	return out
}
