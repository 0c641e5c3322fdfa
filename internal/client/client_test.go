package client

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/engine"
	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/protocol"
)

type doneProcess struct {
	out  []byte
	done chan struct{}
}

func (p *doneProcess) Done() <-chan struct{} { return p.done }
func (p *doneProcess) Output() []byte        { return p.out }
func (p *doneProcess) Kill() error           { return nil }

// echoLauncher finishes every check at once with a fixed output.
type echoLauncher struct {
	mu   sync.Mutex
	argv [][]string
	out  string
}

func (l *echoLauncher) Launch(argv []string, _ string) (engine.Process, error) {
	l.mu.Lock()
	l.argv = append(l.argv, argv)
	l.mu.Unlock()
	done := make(chan struct{})
	close(done)
	return &doneProcess{out: []byte(l.out), done: done}, nil
}

func testConfig(port int) Config {
	return Config{
		Address: "127.0.0.1",
		Port:    port,
		Engine:  engine.Config{Timeout: 5, Concurrency: 2, ChecksDir: "/checks"},
	}
}

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func writeFrame(t *testing.T, w io.Writer, typ protocol.Type, payload string) {
	t.Helper()
	b, err := protocol.Encode(typ, protocol.OptionNone, []byte(payload))
	require.NoError(t, err)
	_, err = w.Write(b)
	require.NoError(t, err)
}

func readFrame(t *testing.T, r io.Reader) (protocol.Type, []byte) {
	t.Helper()
	header := make([]byte, protocol.HeaderSize)
	_, err := io.ReadFull(r, header)
	require.NoError(t, err)
	payload := make([]byte, binary.BigEndian.Uint16(header[2:]))
	_, err = io.ReadFull(r, payload)
	require.NoError(t, err)
	return protocol.Type(header[0]), payload
}

func TestClient_RunsChecksAndReplies(t *testing.T) {
	ln, port := listen(t)
	launcher := &echoLauncher{out: `{"status": "warning", "details": "load 4.2"}`}
	c, err := New(testConfig(port), logger.NewBufferLogger(), engine.WithLauncher(launcher))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	writeFrame(t, conn, protocol.TypeCheck, `[{"id": 7, "path": "load.sh", "args": "-w 4"}, {"path": "noid.sh"}]`)
	typ, payload := readFrame(t, conn)
	assert.Equal(t, protocol.TypeCheckReply, typ)

	var replies []check.StatusUpdate
	require.NoError(t, json.Unmarshal(payload, &replies))
	require.Len(t, replies, 1)
	assert.Equal(t, 7, replies[0].ID)
	assert.Equal(t, check.StatusWarning, replies[0].Status)
	assert.Equal(t, "load 4.2", replies[0].Details)

	writeFrame(t, conn, protocol.TypeTest, `[{"id": 8, "path": "disk.sh"}]`)
	typ, _ = readFrame(t, conn)
	assert.Equal(t, protocol.TypeTestReply, typ)

	launcher.mu.Lock()
	assert.Equal(t, []string{"/checks/load.sh", "-w", "4"}, launcher.argv[0])
	launcher.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestClient_StopsWhenRejected(t *testing.T) {
	ln, port := listen(t)
	log := logger.NewBufferLogger()
	cfg := testConfig(port)
	cfg.Reconnect = true
	c, err := New(cfg, log)
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, radarerrors.IsCode(err, radarerrors.ErrNetwork))
	assert.True(t, log.Contains("not to be allowed to connect"))
}

func TestClient_ConnectFailure(t *testing.T) {
	ln, port := listen(t)
	ln.Close()

	t.Run("no reconnect", func(t *testing.T) {
		c, err := New(testConfig(port), nil)
		require.NoError(t, err)
		err = c.Run(context.Background())
		require.Error(t, err)
		assert.True(t, radarerrors.IsCode(err, radarerrors.ErrNetwork))
	})

	t.Run("reconnect rotates delays", func(t *testing.T) {
		cfg := testConfig(port)
		cfg.Reconnect = true
		c, err := New(cfg, nil)
		require.NoError(t, err)

		var slept []time.Duration
		c.sleep = func(_ context.Context, d time.Duration) bool {
			slept = append(slept, d)
			return len(slept) < 4
		}
		require.NoError(t, c.Run(context.Background()))
		assert.Equal(t, []time.Duration{5 * time.Second, 15 * time.Second, 60 * time.Second, 5 * time.Second}, slept)
	})
}

func TestNew_RejectsInvalidEngineConfig(t *testing.T) {
	cfg := testConfig(1)
	cfg.Engine.Concurrency = 0
	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.True(t, radarerrors.IsCode(err, radarerrors.ErrConfig))
}

func TestClient_ReturnsAfterDisconnectWithoutReconnect(t *testing.T) {
	ln, port := listen(t)
	go func() {
		if conn, err := ln.Accept(); err == nil {
			time.Sleep(2 * RejectInterval)
			conn.Close()
		}
	}()

	log := logger.NewBufferLogger()
	c, err := New(testConfig(port), log)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background()))
	assert.True(t, log.Contains("Disconnected from 127.0.0.1:"+strconv.Itoa(port)))
	assert.False(t, log.Contains("not to be allowed"))
}
