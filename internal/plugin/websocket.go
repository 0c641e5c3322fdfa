package plugin

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/contact"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/protocol"
)

const (
	websocketWriteTimeout = 5 * time.Second
	defaultWebsocketAddr  = "127.0.0.1:8765"
	defaultWebsocketPath  = "/ws"
)

func init() {
	Register("websocket", func(s Settings) (Plugin, error) {
		return NewWebsocketPlugin(s.String("address", defaultWebsocketAddr), s.String("path", defaultWebsocketPath)), nil
	})
}

// websocketReply is the JSON document pushed to browsers.
type websocketReply struct {
	Type     string            `json:"type"`
	Address  string            `json:"address"`
	Port     int               `json:"port"`
	Time     time.Time         `json:"time"`
	Checks   []check.Check     `json:"checks"`
	Contacts []contact.Contact `json:"contacts"`
}

// WebsocketPlugin broadcasts every reply to connected websocket clients.
type WebsocketPlugin struct {
	addr string
	path string
	log  logger.Logger

	upgrader websocket.Upgrader
	ln       net.Listener
	srv      *http.Server

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewWebsocketPlugin serves the endpoint path on addr once started.
func NewWebsocketPlugin(addr, path string) *WebsocketPlugin {
	p := &WebsocketPlugin{addr: addr, path: path, conns: map[*websocket.Conn]struct{}{}}
	p.upgrader = websocket.Upgrader{CheckOrigin: sameOrigin}
	return p
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
}

func (p *WebsocketPlugin) Name() string { return "websocket" }
func (p *WebsocketPlugin) Version() string { return "0.1.0" }

// Addr is the bound address, useful when configured with port 0.
func (p *WebsocketPlugin) Addr() string {
	if p.ln == nil {
		return p.addr
	}
	return p.ln.Addr().String()
}

// Clients returns the number of connected browsers.
func (p *WebsocketPlugin) Clients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *WebsocketPlugin) Start(log logger.Logger) error {
	p.log = log
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return err
	}
	p.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc(p.path, p.serve)
	p.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := p.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			p.log.Error("websocket server stopped: %v", err)
		}
	}()
	p.log.Info("Serving replies on ws://%s%s", ln.Addr(), p.path)
	return nil
}

func (p *WebsocketPlugin) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	// Browsers never send anything; reading only detects the close.
	go func() {
		defer p.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (p *WebsocketPlugin) drop(conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	_ = conn.Close()
}

func (p *WebsocketPlugin) OnCheckReply(r Reply) error { return p.broadcast(r) }
func (p *WebsocketPlugin) OnTestReply(r Reply) error { return p.broadcast(r) }

func (p *WebsocketPlugin) broadcast(r Reply) error {
	msg := websocketReply{
		Type:     protocol.CheckTypes.Name(r.Type),
		Address:  r.Address,
		Port:     r.Port,
		Time:     time.Now().UTC(),
		Checks:   r.Checks,
		Contacts: r.Contacts,
	}

	p.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(websocketWriteTimeout))
		if err := c.WriteJSON(msg); err != nil {
			p.log.Debug("dropping websocket client %s: %v", c.RemoteAddr(), err)
			p.drop(c)
		}
	}
	return nil
}

func (p *WebsocketPlugin) Shutdown() error {
	if p.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.srv.Shutdown(ctx)

	p.mu.Lock()
	for c := range p.conns {
		_ = c.Close()
	}
	p.conns = map[*websocket.Conn]struct{}{}
	p.mu.Unlock()
	return err
}
