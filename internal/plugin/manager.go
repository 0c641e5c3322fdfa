package plugin

import (
	"context"
	"fmt"

	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/protocol"
	"github.com/radarmon/radar/internal/registry"
)

// Manager runs every started plugin for each pending reply.
type Manager struct {
	store   *registry.Store
	plugins []Plugin
	log     logger.Logger
}

// NewManager wires plugins to the arenas they read replies from.
func NewManager(store *registry.Store, plugins []Plugin, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Noop()
	}
	return &Manager{store: store, plugins: plugins, log: log}
}

// Plugins returns the plugins that are running.
func (m *Manager) Plugins() []Plugin { return m.plugins }

// Start starts every plugin. Plugins that fail to start are dropped.
func (m *Manager) Start() {
	started := m.plugins[:0]
	for _, p := range m.plugins {
		plog := logger.With(m.log, fmt.Sprintf("Plugin %s v%s.", p.Name(), p.Version()))
		if err := safely(func() error { return p.Start(plog) }); err != nil {
			m.log.Error("Error - Plugin '%s' version '%s' failed to start. Details : %v", p.Name(), p.Version(), err)
			continue
		}
		m.log.Info("Plugin '%s' version '%s' started", p.Name(), p.Version())
		started = append(started, p)
	}
	m.plugins = started
}

// Run consumes in until ctx is done or in is closed, then shuts every plugin
// down.
func (m *Manager) Run(ctx context.Context, in <-chan registry.PendingReply) {
	defer m.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case pr, ok := <-in:
			if !ok {
				return
			}
			m.Dispatch(pr)
		}
	}
}

// Dispatch resolves pr and hands it to every plugin. Records whose client
// disconnected in the meantime resolve to nothing and are dropped.
func (m *Manager) Dispatch(pr registry.PendingReply) {
	r := Reply{
		Address:  pr.Address,
		Port:     pr.Port,
		Type:     pr.Type,
		Checks:   m.store.ResolveChecks(pr.Checks),
		Contacts: m.store.ResolveContacts(pr.Contacts),
	}
	if len(r.Checks) == 0 {
		m.log.Debug("Dropping reply from %s:%d, client is gone", pr.Address, pr.Port)
		return
	}

	for _, p := range m.plugins {
		var err error
		switch pr.Type {
		case protocol.TypeCheckReply:
			err = safely(func() error { return p.OnCheckReply(r) })
		case protocol.TypeTestReply:
			err = safely(func() error { return p.OnTestReply(r) })
		default:
			m.log.Warn("Unknown message id '%d'", pr.Type)
			return
		}
		if err != nil {
			m.log.Error("Error - Plugin '%s' version '%s' raised an error. Details : %v", p.Name(), p.Version(), err)
		}
	}
}

// Shutdown stops every plugin, logging failures.
func (m *Manager) Shutdown() {
	for _, p := range m.plugins {
		if err := safely(p.Shutdown); err != nil {
			m.log.Error("Error - Plugin '%s' version '%s' failed to shut down. Details : %v", p.Name(), p.Version(), err)
		}
	}
	m.plugins = nil
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
