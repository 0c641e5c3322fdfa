// Package client runs the Radar client process: one connection to the
// server that turns CHECK and TEST frames into engine jobs and sends the
// engine's reply batches back.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/engine"
	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/network"
	"github.com/radarmon/radar/internal/protocol"
)

// RejectInterval is how soon after connecting a disconnect counts as the
// server refusing us.
const RejectInterval = 500 * time.Millisecond

// ReconnectDelays rotate between failed connection attempts.
var ReconnectDelays = []time.Duration{5 * time.Second, 15 * time.Second, 60 * time.Second}

// Config holds the settings of a client process.
type Config struct {
	Address   string
	Port      int
	Reconnect bool
	Engine    engine.Config
}

// Client keeps a connection to the server and feeds the engine.
type Client struct {
	network.BaseHandler

	cfg    Config
	engine *engine.Engine
	log    logger.Logger

	delays []time.Duration
	sleep  func(ctx context.Context, d time.Duration) bool

	sess        *protocol.Session
	connectedAt time.Time
	rejected    bool
}

// New validates the engine settings and builds a client.
func New(cfg Config, log logger.Logger, opts ...engine.Option) (*Client, error) {
	if log == nil {
		log = logger.Noop()
	}
	eng, err := engine.New(cfg.Engine, append([]engine.Option{engine.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		engine: eng,
		log:    log,
		delays: append([]time.Duration(nil), ReconnectDelays...),
		sleep:  sleepCtx,
	}, nil
}

// Engine returns the check execution engine.
func (c *Client) Engine() *engine.Engine { return c.engine }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Client) nextDelay() time.Duration {
	d := c.delays[0]
	c.delays = append(c.delays[1:], d)
	return d
}

// Run connects and serves until ctx is done, the server rejects the client,
// or a connection fails with reconnect disabled.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.engine.Run(ctx)
	}()

	err := c.loop(ctx)
	cancel()
	wg.Wait()
	return err
}

func (c *Client) loop(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := c.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("Error - Can't connect to %s:%d. Details: %v.", c.cfg.Address, c.cfg.Port, err)
			if !c.cfg.Reconnect {
				return radarerrors.WrapWithCode(err, radarerrors.ErrNetwork,
					fmt.Sprintf("Error - Can't connect to %s:%d", c.cfg.Address, c.cfg.Port),
					"Check that the server is running and connect.to / connect.port are right")
			}
			if !c.sleep(ctx, c.nextDelay()) {
				return nil
			}
			continue
		}

		_ = c.sess.Run(ctx, c)
		if ctx.Err() != nil {
			_ = c.sess.Disconnect()
			return nil
		}
		if c.rejected {
			return radarerrors.New(radarerrors.ErrNetwork,
				"Error - Radar client seems not to be allowed to connect to Radar server.",
				"Add this host's address to a monitor on the server, or stop the other client running on it")
		}
		if !c.cfg.Reconnect {
			return nil
		}
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	conn := network.NewConn(c.cfg.Address, c.cfg.Port)
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	c.sess = protocol.NewSession(conn, protocol.CheckTypes)
	c.connectedAt = time.Now()
	c.rejected = false
	c.log.Info("Connected to %s:%d.", c.cfg.Address, c.cfg.Port)
	return nil
}

func (c *Client) OnDisconnect(*network.Conn) {
	c.log.Info("Disconnected from %s:%d.", c.cfg.Address, c.cfg.Port)
	if time.Since(c.connectedAt) < RejectInterval {
		c.rejected = true
		c.log.Error("Error - Radar client seems not to be allowed to connect to Radar server.")
	}
}

func (c *Client) OnAbort(*network.Conn) {
	c.log.Warn("Error - Server %s:%d sent an unknown message. Resetting connection.", c.cfg.Address, c.cfg.Port)
}

func (c *Client) OnReceiveError(conn *network.Conn, err error) {
	c.log.Error("Error - While receiving data from %s:%d. Details: %v", c.cfg.Address, c.cfg.Port, err)
	_ = conn.Disconnect()
}

func (c *Client) OnReceive(*network.Conn) error {
	f, err := c.sess.ReceiveMessage()
	if errors.Is(err, protocol.ErrNotReady) {
		return nil
	}
	if err != nil {
		return err
	}

	if f.Type != protocol.TypeCheck && f.Type != protocol.TypeTest {
		c.log.Warn("Error - Server sent unexpected message '%s'", protocol.CheckTypes.Name(f.Type))
		return nil
	}

	reqs, skipped, err := check.DecodeRequests(f.Payload)
	if err != nil {
		c.log.Warn("Error - %s", radarerrors.Brief(err))
		return nil
	}
	for _, s := range skipped {
		c.log.Warn("Skipping check request without id or path: %s", s)
	}
	if len(reqs) == 0 {
		return nil
	}

	select {
	case c.engine.Jobs() <- engine.Job{Type: f.Type, Requests: reqs}:
	default:
		c.log.Error("Error - Couldn't write to queue. Dropping %d %s request(s)", len(reqs), protocol.CheckTypes.Name(f.Type))
	}
	return nil
}

// OnTimeout sends at most one finished batch.
func (c *Client) OnTimeout(*network.Conn) error {
	select {
	case b := <-c.engine.Results():
		return c.sess.SendJSON(b.Type, b.Replies)
	default:
		return nil
	}
}
