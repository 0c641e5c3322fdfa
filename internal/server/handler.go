package server

import (
	"errors"

	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/network"
	"github.com/radarmon/radar/internal/protocol"
	"github.com/radarmon/radar/internal/registry"
)

// handler connects the client listener to the registry. It runs on the
// network goroutine only.
type handler struct {
	network.BaseListenerHandler

	reg      *registry.Registry
	fanout   chan<- registry.PendingReply
	sessions map[*network.Conn]*protocol.Session
	log      logger.Logger
}

func newHandler(reg *registry.Registry, fanout chan<- registry.PendingReply, log logger.Logger) *handler {
	return &handler{
		reg:      reg,
		fanout:   fanout,
		sessions: map[*network.Conn]*protocol.Session{},
		log:      log,
	}
}

func (h *handler) AcceptClient(c *network.Conn) bool {
	sess := protocol.NewSession(c, protocol.CheckTypes)
	if !h.reg.MatchesAnyMonitor(sess) {
		return false
	}
	h.sessions[c] = sess
	return true
}

func (h *handler) OnReject(c *network.Conn) {
	h.log.Warn("Client %s:%d is not allowed to connect or is already connected.", c.Addr(), c.Port())
}

func (h *handler) OnConnect(c *network.Conn) {
	sess, ok := h.sessions[c]
	if !ok {
		return
	}
	n := h.reg.Register(sess)
	h.log.Info("Client %s:%d got connected (%d monitor(s)).", c.Addr(), c.Port(), n)
}

func (h *handler) forget(c *network.Conn) {
	if sess, ok := h.sessions[c]; ok {
		h.reg.Unregister(sess)
		delete(h.sessions, c)
	}
}

func (h *handler) OnDisconnect(c *network.Conn) {
	h.forget(c)
	h.log.Info("Client %s:%d got disconnected.", c.Addr(), c.Port())
}

func (h *handler) OnAbort(c *network.Conn) {
	h.forget(c)
	h.log.Warn("Error - Client %s:%d sent an unknown message. Resetting connection.", c.Addr(), c.Port())
}

func (h *handler) OnReceive(c *network.Conn) error {
	sess, ok := h.sessions[c]
	if !ok {
		return network.ErrDisconnected
	}

	f, err := sess.ReceiveMessage()
	if errors.Is(err, protocol.ErrNotReady) {
		return nil
	}
	if err != nil {
		var recvErr *network.ReceiveError
		if errors.As(err, &recvErr) {
			h.log.Error("Error - While receiving data from client %s:%d. Details: %v", c.Addr(), c.Port(), err)
		}
		return err
	}

	updates, err := h.reg.ProcessMessage(sess, f.Type, f.Payload)
	if err != nil {
		h.log.Warn("Error - Couldn't decode reply from %s:%d. Details : %v", c.Addr(), c.Port(), err)
		return nil
	}

	for _, u := range updates {
		h.enqueue(registry.PendingReply{
			Address:  c.Addr().String(),
			Port:     c.Port(),
			Type:     f.Type,
			Checks:   u.Checks,
			Contacts: u.Contacts,
		})
	}
	return nil
}

func (h *handler) enqueue(pr registry.PendingReply) {
	select {
	case h.fanout <- pr:
	default:
		h.log.Error("Error - Couldn't write to queue. Details : %d pending replies.", len(h.fanout))
	}
}
