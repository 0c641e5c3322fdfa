package registry

import (
	"fmt"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/protocol"
)

// Registry routes clients and their replies to monitors.
type Registry struct {
	monitors []*Monitor
	store    *Store
	log      logger.Logger
}

// New binds monitors to one shared store.
func New(monitors []*Monitor, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Noop()
	}
	s := NewStore()
	for _, m := range monitors {
		m.store = s
	}
	return &Registry{monitors: monitors, store: s, log: log}
}

// Store returns the arenas shared with the plugin workers.
func (r *Registry) Store() *Store { return r.store }

// Monitors returns the configured monitors.
func (r *Registry) Monitors() []*Monitor { return r.monitors }

// MatchesAnyMonitor reports whether some monitor would accept peer.
func (r *Registry) MatchesAnyMonitor(peer Peer) bool {
	for _, m := range r.monitors {
		if m.Matches(peer) {
			return true
		}
	}
	return false
}

// Register adds peer to every monitor that matches it.
func (r *Registry) Register(peer Peer) int {
	n := 0
	for _, m := range r.monitors {
		if m.AddClient(peer) {
			n++
		}
	}
	return n
}

// Unregister removes peer from every monitor.
func (r *Registry) Unregister(peer Peer) {
	for _, m := range r.monitors {
		m.RemoveClient(peer)
	}
}

// Poll sends the enabled checks of every enabled monitor to its clients.
func (r *Registry) Poll(t protocol.Type) {
	for _, m := range r.monitors {
		if !m.Enabled {
			continue
		}
		_, errs := m.Poll(t)
		r.logErrors(errs)
	}
}

// PollChecks sends only the listed checks. It backs the console test action.
func (r *Registry) PollChecks(t protocol.Type, ids []int) int {
	sent := 0
	for _, m := range r.monitors {
		if !m.Enabled {
			continue
		}
		reqs, errs := m.PollChecks(t, ids)
		sent += len(reqs) * m.Clients()
		r.logErrors(errs)
	}
	return sent
}

func (r *Registry) logErrors(errs []error) {
	for _, err := range errs {
		r.log.Error("Error - Couldn't poll client: %v", err)
	}
}

// ProcessMessage correlates a reply with peer's copies in every enabled
// monitor. Only CHECK_REPLY and TEST_REPLY carry statuses; other types are
// logged and ignored.
func (r *Registry) ProcessMessage(peer Peer, t protocol.Type, payload []byte) ([]Update, error) {
	if t != protocol.TypeCheckReply && t != protocol.TypeTestReply {
		r.log.Warn("Error - Client %s:%d sent unknown message id '%d'", peer.Addr(), peer.Port(), t)
		return nil, nil
	}

	statuses, err := check.DecodeReplies(payload)
	if err != nil {
		return nil, err
	}
	for _, s := range statuses {
		r.log.Info("%s from %s:%d -> %s", protocol.CheckTypes.Name(t), peer.Addr(), peer.Port(), describe(s))
	}

	var updates []Update
	for _, m := range r.monitors {
		if !m.Enabled {
			continue
		}
		if up, ok := m.UpdateChecks(peer, statuses); ok {
			updates = append(updates, up)
		}
	}
	return updates, nil
}

func describe(s check.StatusUpdate) string {
	out := fmt.Sprintf("{id: %d, status: %s", s.ID, s.Status)
	if s.Details != "" {
		out += fmt.Sprintf(", details: %q", s.Details)
	}
	if len(s.Data) > 0 {
		out += ", data: " + string(s.Data)
	}
	return out + "}"
}

// Enable switches on everything listed in ids. It reports whether any id
// was found.
func (r *Registry) Enable(ids []int) bool {
	hit := false
	for _, m := range r.monitors {
		if m.Enable(ids) {
			hit = true
		}
	}
	return hit
}

// Disable switches off everything listed in ids.
func (r *Registry) Disable(ids []int) bool {
	hit := false
	for _, m := range r.monitors {
		if m.Disable(ids) {
			hit = true
		}
	}
	return hit
}

// Snapshot renders every monitor for the console.
func (r *Registry) Snapshot() []MonitorView {
	out := make([]MonitorView, 0, len(r.monitors))
	for _, m := range r.monitors {
		out = append(out, m.View())
	}
	return out
}
