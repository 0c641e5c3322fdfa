package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/network"
	"github.com/radarmon/radar/internal/protocol"
)

// DefaultReplyTimeout bounds how long Query waits for the server.
const DefaultReplyTimeout = 10 * time.Second

// Client sends console queries over one connection.
type Client struct {
	Address string
	Port    int
	Token   string
	// ReplyTimeout defaults to DefaultReplyTimeout.
	ReplyTimeout time.Duration

	sess *protocol.Session
}

// NewClient prepares a client. Dial connects it.
func NewClient(address string, port int, token string) *Client {
	return &Client{Address: address, Port: port, Token: token, ReplyTimeout: DefaultReplyTimeout}
}

// Dial connects to the console listener.
func (c *Client) Dial(ctx context.Context) error {
	conn := network.NewConn(c.Address, c.Port, network.WithBlocking(true))
	if err := conn.Connect(ctx); err != nil {
		return radarerrors.WrapWithCode(err, radarerrors.ErrConsole,
			fmt.Sprintf("Couldn't connect to console at %s", conn),
			"Check that the server runs with console.enabled and that address and port match")
	}
	c.sess = protocol.NewSession(conn, protocol.ConsoleTypes)
	return nil
}

// Close disconnects.
func (c *Client) Close() error {
	if c.sess == nil {
		return nil
	}
	err := c.sess.Disconnect()
	c.sess = nil
	return err
}

// Query sends action and waits for the reply.
func (c *Client) Query(ctx context.Context, action string) (protocol.QueryReply, error) {
	var reply protocol.QueryReply
	if c.sess == nil {
		if err := c.Dial(ctx); err != nil {
			return reply, err
		}
	}

	if err := c.sess.SendJSON(protocol.TypeQuery, protocol.Query{Action: action, Token: c.Token}); err != nil {
		c.Close()
		return reply, radarerrors.WrapWithCode(err, radarerrors.ErrConsole, "Couldn't send console query", "")
	}

	timeout := c.ReplyTimeout
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return reply, err
		}
		if time.Now().After(deadline) {
			return reply, radarerrors.New(radarerrors.ErrConsole,
				fmt.Sprintf("No reply from console within %s", timeout), "")
		}

		ready, err := c.sess.WaitReadable(network.DefaultTimeout)
		if err != nil {
			c.Close()
			return reply, err
		}
		if !ready {
			continue
		}

		f, err := c.sess.ReceiveMessage()
		if errors.Is(err, protocol.ErrNotReady) {
			continue
		}
		if err != nil {
			c.Close()
			if errors.Is(err, network.ErrDisconnected) {
				return reply, radarerrors.New(radarerrors.ErrConsole,
					"Got disconnect from server. Was Radar server shut down ?", "")
			}
			return reply, err
		}
		if f.Type != protocol.TypeQueryReply {
			continue
		}
		if err := json.Unmarshal(f.Payload, &reply); err != nil {
			return reply, radarerrors.WrapWithCode(err, radarerrors.ErrConsole,
				"Wrong JSON format. Missing 'message' or 'data' key", "")
		}
		return reply, nil
	}
}
