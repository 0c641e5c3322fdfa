package registry

import (
	"github.com/radarmon/radar/internal/arena"
	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/contact"
	"github.com/radarmon/radar/internal/protocol"
)

// Store holds the per-client copies of checks and contacts. It is the only
// registry state shared with other goroutines.
type Store struct {
	Checks   *arena.Arena[check.Check]
	Contacts *arena.Arena[contact.Contact]
}

// NewStore returns empty arenas.
func NewStore() *Store {
	return &Store{
		Checks:   arena.New[check.Check](),
		Contacts: arena.New[contact.Contact](),
	}
}

// ResolveChecks dereferences hs, skipping handles whose client is gone.
func (s *Store) ResolveChecks(hs []arena.Handle) []check.Check {
	out := make([]check.Check, 0, len(hs))
	for _, h := range hs {
		if c, ok := s.Checks.Get(h); ok {
			out = append(out, *c.Clone())
		}
	}
	return out
}

// ResolveContacts dereferences hs, skipping handles whose client is gone.
func (s *Store) ResolveContacts(hs []arena.Handle) []contact.Contact {
	out := make([]contact.Contact, 0, len(hs))
	for _, h := range hs {
		if c, ok := s.Contacts.Get(h); ok {
			out = append(out, c)
		}
	}
	return out
}

// PendingReply is the fan-out record written for every monitor that a reply
// changed.
type PendingReply struct {
	Address  string
	Port     int
	Type     protocol.Type
	Checks   []arena.Handle
	Contacts []arena.Handle
}
