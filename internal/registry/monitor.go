// Package registry correlates connected clients with the monitors that watch
// them. Every monitor keeps a private copy of its checks and contacts per
// client; replies from a client only ever touch that client's copies.
//
// Registry and Monitor are owned by the server's network goroutine and are
// not safe for concurrent use. The Store they write through is.
package registry

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/radarmon/radar/internal/address"
	"github.com/radarmon/radar/internal/arena"
	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/contact"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/ident"
	"github.com/radarmon/radar/internal/protocol"
)

// Peer is a connected client as seen by the registry.
type Peer interface {
	Addr() netip.Addr
	Port() int
	SendMessage(t protocol.Type, payload []byte) error
}

// Update describes the copies changed by one reply for one monitor.
type Update struct {
	Monitor  string
	Checks   []arena.Handle
	Contacts []arena.Handle
}

type record struct {
	peer Peer

	checks      []check.Entry
	leaves      []*check.Check
	checkHandle []arena.Handle

	contacts      []contact.Entry
	contactHandle []arena.Handle
}

// Monitor watches a set of address patterns with a set of checks.
type Monitor struct {
	ident.Switchable
	Name      string
	Addresses []address.Pattern
	Checks    []check.Entry
	Contacts  []contact.Entry

	store   *Store
	clients []*record
}

// NewMonitor creates an enabled monitor. Addresses and checks are required.
func NewMonitor(id int, name string, addrs []address.Pattern, checks []check.Entry, contacts []contact.Entry) (*Monitor, error) {
	if len(addrs) == 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Missing 'addresses' from monitor '%s'", name),
			"List at least one address or address range under hosts")
	}
	checks = check.Dedup(checks)
	if len(checks) == 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Missing 'checks' from monitor '%s'", name),
			"Reference at least one check or check group under watch")
	}
	return &Monitor{
		Switchable: ident.Switchable{ID: id, Enabled: true},
		Name:       name,
		Addresses:  addrs,
		Checks:     checks,
		Contacts:   contact.Dedup(contacts),
	}, nil
}

func (m *Monitor) arenas() *Store {
	if m.store == nil {
		m.store = NewStore()
	}
	return m.store
}

func (m *Monitor) find(addr netip.Addr) (int, *record) {
	for i, r := range m.clients {
		if r.peer.Addr() == addr {
			return i, r
		}
	}
	return -1, nil
}

// Watches reports whether addr falls inside one of the monitor's patterns.
func (m *Monitor) Watches(addr netip.Addr) bool {
	for _, p := range m.Addresses {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Matches reports whether peer may be added: its address is watched and no
// client from the same address is registered yet.
func (m *Monitor) Matches(peer Peer) bool {
	if _, r := m.find(peer.Addr()); r != nil {
		return false
	}
	return m.Watches(peer.Addr())
}

// Clients returns the number of registered clients.
func (m *Monitor) Clients() int {
	return len(m.clients)
}

// AddClient registers peer with fresh copies of every check and contact.
func (m *Monitor) AddClient(peer Peer) bool {
	if !m.Matches(peer) {
		return false
	}
	s := m.arenas()

	r := &record{peer: peer}
	for _, e := range m.Checks {
		r.checks = append(r.checks, e.CloneEntry())
	}
	r.leaves = check.Flatten(r.checks)
	for _, c := range r.leaves {
		r.checkHandle = append(r.checkHandle, s.Checks.Insert(*c.Clone()))
	}

	for _, e := range m.Contacts {
		r.contacts = append(r.contacts, e.CloneEntry())
	}
	for _, c := range contact.Flatten(r.contacts) {
		r.contactHandle = append(r.contactHandle, s.Contacts.Insert(*c.Clone()))
	}

	m.clients = append(m.clients, r)
	return true
}

// RemoveClient drops the record of peer and frees its copies.
func (m *Monitor) RemoveClient(peer Peer) bool {
	i, r := m.find(peer.Addr())
	if r == nil || r.peer.Port() != peer.Port() {
		return false
	}
	s := m.arenas()
	for _, h := range r.checkHandle {
		s.Checks.Remove(h)
	}
	for _, h := range r.contactHandle {
		s.Contacts.Remove(h)
	}
	m.clients = append(m.clients[:i], m.clients[i+1:]...)
	return true
}

// sync copies the record's current tree into the store.
func (m *Monitor) sync(r *record) {
	s := m.arenas()
	for i, c := range r.leaves {
		leaf := c.Clone()
		s.Checks.Update(r.checkHandle[i], func(v *check.Check) { *v = *leaf })
	}
	for i, c := range contact.Flatten(r.contacts) {
		leaf := *c.Clone()
		s.Contacts.Update(r.contactHandle[i], func(v *contact.Contact) { *v = leaf })
	}
}

// UpdateChecks applies statuses to peer's copies. The update lists the
// changed checks and every enabled contact; ok is false when nothing
// changed.
func (m *Monitor) UpdateChecks(peer Peer, statuses []check.StatusUpdate) (Update, bool) {
	_, r := m.find(peer.Addr())
	if r == nil {
		return Update{}, false
	}

	changed := map[*check.Check]bool{}
	for _, u := range statuses {
		for _, e := range r.checks {
			for _, c := range apply(e, u) {
				changed[c] = true
			}
		}
	}
	if len(changed) == 0 {
		return Update{}, false
	}
	m.sync(r)

	up := Update{Monitor: m.Name}
	for i, leaf := range r.leaves {
		if changed[leaf] {
			up.Checks = append(up.Checks, r.checkHandle[i])
		}
	}
	for i, c := range contact.Flatten(r.contacts) {
		if c.Enabled {
			up.Contacts = append(up.Contacts, r.contactHandle[i])
		}
	}
	return up, true
}

// apply offers u to e and returns the leaves that accepted it. Members of a
// disabled group are skipped.
func apply(e check.Entry, u check.StatusUpdate) []*check.Check {
	switch v := e.(type) {
	case *check.Check:
		if v.UpdateStatus(u) {
			return []*check.Check{v}
		}
	case *check.Group:
		if !v.Enabled {
			return nil
		}
		var out []*check.Check
		for _, m := range v.Members {
			out = append(out, apply(m, u)...)
		}
		return out
	}
	return nil
}

// Poll sends every enabled template check to every registered client.
func (m *Monitor) Poll(t protocol.Type) ([]check.Request, []error) {
	return m.poll(t, check.Requests(m.Checks))
}

// PollChecks sends the enabled template checks whose id is listed.
func (m *Monitor) PollChecks(t protocol.Type, ids []int) ([]check.Request, []error) {
	var reqs []check.Request
	listed := ident.Switchable{}
	for _, r := range check.Requests(m.Checks) {
		listed.ID = r.ID
		if listed.Listed(ids) {
			reqs = append(reqs, r)
		}
	}
	return m.poll(t, reqs)
}

func (m *Monitor) poll(t protocol.Type, reqs []check.Request) ([]check.Request, []error) {
	if len(reqs) == 0 || len(m.clients) == 0 {
		return reqs, nil
	}
	payload, err := json.Marshal(reqs)
	if err != nil {
		return reqs, []error{err}
	}
	var errs []error
	for _, r := range m.clients {
		if err := r.peer.SendMessage(t, payload); err != nil {
			errs = append(errs, fmt.Errorf("poll %s:%d: %w", r.peer.Addr(), r.peer.Port(), err))
		}
	}
	return reqs, errs
}

// Enable switches on the monitor, its templates and every client copy
// listed in ids.
func (m *Monitor) Enable(ids []int) bool {
	return m.toggle(ids, true)
}

// Disable is the inverse of Enable.
func (m *Monitor) Disable(ids []int) bool {
	return m.toggle(ids, false)
}

func (m *Monitor) toggle(ids []int, on bool) bool {
	hit := false
	set := func(ok bool) {
		if ok {
			hit = true
		}
	}
	if on {
		set(m.Switchable.Enable(ids))
	} else {
		set(m.Switchable.Disable(ids))
	}

	each := func(checks []check.Entry, contacts []contact.Entry) {
		for _, e := range checks {
			if on {
				set(e.Enable(ids))
			} else {
				set(e.Disable(ids))
			}
		}
		for _, e := range contacts {
			if on {
				set(e.Enable(ids))
			} else {
				set(e.Disable(ids))
			}
		}
	}
	each(m.Checks, m.Contacts)
	for _, r := range m.clients {
		each(r.checks, r.contacts)
		m.sync(r)
	}
	return hit
}

// ClientView is the console rendering of one registered client.
type ClientView struct {
	Address  string            `json:"address"`
	Port     int               `json:"port"`
	Checks   []check.Check     `json:"checks"`
	Contacts []contact.Contact `json:"contacts"`
}

// MonitorView is the console rendering of a monitor.
type MonitorView struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Enabled bool         `json:"enabled"`
	Clients []ClientView `json:"clients"`
}

// View renders the monitor with a copy of every client's state.
func (m *Monitor) View() MonitorView {
	v := MonitorView{ID: m.ID, Name: m.Name, Enabled: m.Enabled, Clients: []ClientView{}}
	for _, r := range m.clients {
		cv := ClientView{Address: r.peer.Addr().String(), Port: r.peer.Port()}
		for _, c := range r.leaves {
			cv.Checks = append(cv.Checks, *c.Clone())
		}
		for _, c := range contact.Flatten(r.contacts) {
			cv.Contacts = append(cv.Contacts, *c.Clone())
		}
		v.Clients = append(v.Clients, cv)
	}
	return v
}
