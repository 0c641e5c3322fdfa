package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/network"
	"github.com/radarmon/radar/internal/network/poller"
	"github.com/radarmon/radar/internal/protocol"
	"github.com/radarmon/radar/internal/registry"
)

// Executor runs fn on the goroutine that owns the registry and returns once
// fn has run.
type Executor interface {
	Do(ctx context.Context, fn func(r *registry.Registry)) error
}

// Config configures the console listener.
type Config struct {
	Address string
	Port    int
	Backend poller.Backend
	// TokenHash is a bcrypt hash. When set every query must carry the token.
	TokenHash string
}

// Server answers console queries.
type Server struct {
	network.BaseListenerHandler

	cfg      Config
	exec     Executor
	log      logger.Logger
	listener *network.Listener
	sessions map[*network.Conn]*protocol.Session
	ctx      context.Context
}

// NewServer builds the console server. Call Run to serve.
func NewServer(cfg Config, exec Executor, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	s := &Server{
		cfg:      cfg,
		exec:     exec,
		log:      log,
		sessions: map[*network.Conn]*protocol.Session{},
		ctx:      context.Background(),
	}
	s.listener = network.NewListener(network.ListenerConfig{
		Address: cfg.Address,
		Port:    cfg.Port,
		Backend: cfg.Backend,
		Logger:  log,
	}, s)
	return s
}

// Listen binds the console socket.
func (s *Server) Listen(ctx context.Context) error {
	return s.listener.Listen(ctx)
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if a := s.listener.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx
	return s.listener.Run(ctx)
}

func (s *Server) OnConnect(c *network.Conn) {
	s.sessions[c] = protocol.NewSession(c, protocol.ConsoleTypes)
	s.log.Info("Console %s connected", c)
}

func (s *Server) OnDisconnect(c *network.Conn) {
	delete(s.sessions, c)
	s.log.Info("Console %s disconnected", c)
}

func (s *Server) OnAbort(c *network.Conn) {
	delete(s.sessions, c)
	s.log.Warn("Error - Console %s sent an unknown message. Resetting connection", c)
}

func (s *Server) OnReceive(c *network.Conn) error {
	sess, ok := s.sessions[c]
	if !ok {
		return network.ErrDisconnected
	}
	f, err := sess.ReceiveMessage()
	if errors.Is(err, protocol.ErrNotReady) {
		return nil
	}
	if err != nil {
		return err
	}
	if f.Type != protocol.TypeQuery {
		return fmt.Errorf("%w: console sent message type %d", network.ErrAbort, f.Type)
	}

	reply := s.answer(f.Payload)
	return sess.SendJSON(protocol.TypeQueryReply, reply)
}

func (s *Server) answer(payload []byte) protocol.QueryReply {
	var q protocol.Query
	if err := json.Unmarshal(payload, &q); err != nil {
		return failure(radarerrors.WrapWithCode(err, radarerrors.ErrConsole, "Error - Malformed query", ""))
	}
	if !s.authorized(q.Token) {
		return failure(radarerrors.New(radarerrors.ErrConsole, "Error - Invalid console token.", ""))
	}

	a, err := ParseAction(q.Action)
	if err != nil {
		return failure(err)
	}
	s.log.Info("Console action %s", a)
	reply, err := s.execute(a)
	if err != nil {
		return failure(err)
	}
	return reply
}

func (s *Server) authorized(token string) bool {
	if s.cfg.TokenHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(s.cfg.TokenHash), []byte(token)) == nil
}

func (s *Server) execute(a Action) (protocol.QueryReply, error) {
	var (
		reply protocol.QueryReply
		run   func(r *registry.Registry) error
	)

	switch a.Name {
	case "list":
		run = func(r *registry.Registry) error {
			data, err := json.Marshal(filter(r.Snapshot(), a.Args))
			if err != nil {
				return err
			}
			reply = protocol.QueryReply{Message: "", Data: data}
			return nil
		}
	case "enable", "disable":
		run = func(r *registry.Registry) error {
			var hit bool
			if a.Name == "enable" {
				hit = r.Enable(a.Args)
			} else {
				hit = r.Disable(a.Args)
			}
			reply = message(fmt.Sprintf("%sd %s", a.Name, idList(a.Args)))
			if !hit {
				reply = message(fmt.Sprintf("Nothing matched %s", idList(a.Args)))
			}
			return nil
		}
	case "test":
		run = func(r *registry.Registry) error {
			n := r.PollChecks(protocol.TypeTest, a.Args)
			reply = message(fmt.Sprintf("Sent %d test request(s) for %s", n, idList(a.Args)))
			return nil
		}
	default:
		return reply, radarerrors.New(radarerrors.ErrConsole,
			fmt.Sprintf("Error - Invalid command : '%s'.", a.Name),
			"Available commands: list, enable, disable, test")
	}

	var runErr error
	if err := s.exec.Do(s.ctx, func(r *registry.Registry) { runErr = run(r) }); err != nil {
		return reply, err
	}
	return reply, runErr
}

func filter(views []registry.MonitorView, ids []int) []registry.MonitorView {
	if len(ids) == 0 {
		return views
	}
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []registry.MonitorView{}
	for _, v := range views {
		if want[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

func idList(ids []int) string {
	if len(ids) == 0 {
		return "no ids"
	}
	return fmt.Sprintf("ids %v", ids)
}

func message(m string) protocol.QueryReply {
	return protocol.QueryReply{Message: m, Data: json.RawMessage("null")}
}

func failure(err error) protocol.QueryReply {
	return message(radarerrors.Brief(err))
}
