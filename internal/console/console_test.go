package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/radarmon/radar/internal/address"
	"github.com/radarmon/radar/internal/check"
	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/ident"
	"github.com/radarmon/radar/internal/protocol"
	"github.com/radarmon/radar/internal/registry"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{in: "list()", want: Action{Name: "list"}},
		{in: "list", want: Action{Name: "list"}},
		{in: "  enable(1, 2,3 ) ", want: Action{Name: "enable", Args: []int{1, 2, 3}}},
		{in: "disable(-4)", want: Action{Name: "disable", Args: []int{-4}}},
		{in: "test_all(7)", want: Action{Name: "test_all", Args: []int{7}}},
		{in: "enable(1", wantErr: true},
		{in: "enable(a)", wantErr: true},
		{in: "enable(1,)", wantErr: true},
		{in: "(1)", wantErr: true},
		{in: "9lives()", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, radarerrors.IsCode(err, radarerrors.ErrConsole))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "enable(1, 2)", Action{Name: "enable", Args: []int{1, 2}}.String())
	assert.Equal(t, "list()", Action{Name: "list"}.String())
}

// directExecutor runs commands inline. The console server only ever calls
// it from its own goroutine so no locking is needed.
type directExecutor struct {
	reg *registry.Registry
	err error
}

func (d *directExecutor) Do(_ context.Context, fn func(r *registry.Registry)) error {
	if d.err != nil {
		return d.err
	}
	fn(d.reg)
	return nil
}

type nullPeer struct{ addr netip.Addr }

func (p nullPeer) Addr() netip.Addr                        { return p.addr }
func (p nullPeer) Port() int                               { return 4000 }
func (p nullPeer) SendMessage(protocol.Type, []byte) error { return nil }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	c, err := check.New(7, "uptime", "uptime.py", "")
	require.NoError(t, err)
	m, err := registry.NewMonitor(1, "web", []address.Pattern{address.MustParse("10.0.0.1-10.0.0.10")}, []check.Entry{c}, nil)
	require.NoError(t, err)
	r := registry.New([]*registry.Monitor{m}, nil)
	r.Register(nullPeer{addr: netip.MustParseAddr("10.0.0.2")})
	return r
}

func startServer(t *testing.T, cfg Config, exec Executor) (*Server, context.CancelFunc) {
	t.Helper()
	cfg.Address = "127.0.0.1"
	s := NewServer(cfg, exec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Listen(ctx))

	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, cancel
}

func dial(t *testing.T, s *Server, token string) *Client {
	t.Helper()
	host, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	c := NewClient(host, p, token)
	c.ReplyTimeout = 3 * time.Second
	require.NoError(t, c.Dial(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestServer_Actions(t *testing.T) {
	reg := testRegistry(t)
	s, _ := startServer(t, Config{}, &directExecutor{reg: reg})
	c := dial(t, s, "")
	ctx := context.Background()

	reply, err := c.Query(ctx, "list()")
	require.NoError(t, err)
	var views []registry.MonitorView
	require.NoError(t, json.Unmarshal(reply.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "web", views[0].Name)
	require.Len(t, views[0].Clients, 1)
	assert.Equal(t, "10.0.0.2", views[0].Clients[0].Address)

	reply, err = c.Query(ctx, "disable(7)")
	require.NoError(t, err)
	assert.Equal(t, "disabled ids [7]", reply.Message)
	assert.False(t, reg.Snapshot()[0].Clients[0].Checks[0].Enabled)

	reply, err = c.Query(ctx, "enable(7)")
	require.NoError(t, err)
	assert.Equal(t, "enabled ids [7]", reply.Message)

	reply, err = c.Query(ctx, "enable(999)")
	require.NoError(t, err)
	assert.Equal(t, "Nothing matched ids [999]", reply.Message)

	reply, err = c.Query(ctx, "test(7)")
	require.NoError(t, err)
	assert.Equal(t, "Sent 1 test request(s) for ids [7]", reply.Message)

	reply, err = c.Query(ctx, "list(42)")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(reply.Data))
}

func TestServer_ErrorsAreAnswered(t *testing.T) {
	s, _ := startServer(t, Config{}, &directExecutor{reg: testRegistry(t)})
	c := dial(t, s, "")
	ctx := context.Background()

	reply, err := c.Query(ctx, "reboot()")
	require.NoError(t, err)
	assert.Equal(t, "Error - Invalid command : 'reboot'.", reply.Message)

	reply, err = c.Query(ctx, "enable(x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply.Message, "Error - Couldn't parse command"))

	reply, err = c.Query(ctx, "list()")
	require.NoError(t, err, "connection survives bad commands")
	assert.NotEmpty(t, reply.Data)
}

func TestServer_ExecutorFailure(t *testing.T) {
	s, _ := startServer(t, Config{}, &directExecutor{err: errors.New("server stopping")})
	c := dial(t, s, "")

	reply, err := c.Query(context.Background(), "list()")
	require.NoError(t, err)
	assert.Equal(t, "server stopping", reply.Message)
}

func TestServer_Token(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	s, _ := startServer(t, Config{TokenHash: string(hash)}, &directExecutor{reg: testRegistry(t)})

	bad := dial(t, s, "guess")
	reply, err := bad.Query(context.Background(), "list()")
	require.NoError(t, err)
	assert.Equal(t, "Error - Invalid console token.", reply.Message)

	good := dial(t, s, "s3cret")
	reply, err = good.Query(context.Background(), "list()")
	require.NoError(t, err)
	assert.Empty(t, reply.Message)
}

func TestServer_AbortsOnWrongType(t *testing.T) {
	s, _ := startServer(t, Config{}, &directExecutor{reg: testRegistry(t)})
	c := dial(t, s, "")

	require.NoError(t, c.sess.SendMessage(protocol.TypeQueryReply, []byte(`{}`)))
	_, err := c.Query(context.Background(), "list()")
	assert.Error(t, err)
}

type scriptedQuerier struct {
	seen    []string
	replies map[string]protocol.QueryReply
}

func (q *scriptedQuerier) Query(_ context.Context, action string) (protocol.QueryReply, error) {
	q.seen = append(q.seen, action)
	if r, ok := q.replies[action]; ok {
		return r, nil
	}
	return protocol.QueryReply{}, radarerrors.New(radarerrors.ErrConsole, "Error - Invalid command : '"+action+"'.", "")
}

func TestREPL(t *testing.T) {
	q := &scriptedQuerier{replies: map[string]protocol.QueryReply{
		"list()":    {Data: json.RawMessage(`[{"id":1}]`)},
		"enable(1)": {Message: "enabled ids [1]"},
	}}
	in := strings.NewReader("list()\n\nenable(1)\nnope()\nquit()\nlist()\n")
	var out bytes.Buffer

	require.NoError(t, REPL(context.Background(), q, in, &out))
	assert.Equal(t, []string{"list()", "enable(1)", "nope()"}, q.seen)
	assert.Contains(t, out.String(), "\"id\": 1")
	assert.Contains(t, out.String(), "enabled ids [1]")
	assert.Contains(t, out.String(), "Invalid command : 'nope()'")
}

func TestRender(t *testing.T) {
	var out bytes.Buffer
	Render(&out, protocol.QueryReply{Data: json.RawMessage("null")})
	assert.Empty(t, out.String())

	Render(&out, protocol.QueryReply{Message: "hi", Data: json.RawMessage(`[1]`)})
	assert.Equal(t, "hi\n", out.String())
}

func TestRenderSnapshotTable(t *testing.T) {
	views := []registry.MonitorView{
		{ID: 1, Name: "web", Enabled: true, Clients: []registry.ClientView{{
			Address: "10.0.0.2",
			Port:    4000,
			Checks:  []check.Check{{Switchable: ident.Switchable{ID: 7, Enabled: true}, Name: "uptime", CurrentStatus: check.StatusSevere}},
		}}},
		{ID: 2, Name: "db", Clients: []registry.ClientView{}},
	}
	data, err := json.Marshal(views)
	require.NoError(t, err)

	var out bytes.Buffer
	Render(&out, protocol.QueryReply{Data: data})
	s := out.String()
	assert.Contains(t, s, "Monitor")
	assert.Contains(t, s, "web [1]")
	assert.Contains(t, s, "10.0.0.2:4000")
	assert.Contains(t, s, "uptime [7]")
	assert.Contains(t, s, "SEVERE")
	assert.Contains(t, s, "db [2] (off)")
}
