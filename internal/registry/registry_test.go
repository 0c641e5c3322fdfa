package registry

import (
	"encoding/json"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radarmon/radar/internal/address"
	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/contact"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/protocol"
)

type sent struct {
	typ     protocol.Type
	payload []byte
}

type fakePeer struct {
	addr netip.Addr
	port int
	out  []sent
	err  error
}

func peer(addr string, port int) *fakePeer {
	return &fakePeer{addr: netip.MustParseAddr(addr), port: port}
}

func (p *fakePeer) Addr() netip.Addr { return p.addr }
func (p *fakePeer) Port() int { return p.port }

func (p *fakePeer) SendMessage(t protocol.Type, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, sent{typ: t, payload: append([]byte(nil), payload...)})
	return nil
}

func mustCheck(t *testing.T, id int, name, path string) *check.Check {
	t.Helper()
	c, err := check.New(id, name, path, "")
	require.NoError(t, err)
	return c
}

func mustContact(t *testing.T, id int, name string) *contact.Contact {
	t.Helper()
	c, err := contact.New(id, name, name+"@example.com", "")
	require.NoError(t, err)
	return c
}

func newMonitor(t *testing.T, pattern string, entries ...check.Entry) *Monitor {
	t.Helper()
	m, err := NewMonitor(100, "web", []address.Pattern{address.MustParse(pattern)}, entries,
		[]contact.Entry{mustContact(t, 50, "ops")})
	require.NoError(t, err)
	return m
}

func TestNewMonitor_Validation(t *testing.T) {
	c := mustCheck(t, 1, "load", "load.py")

	_, err := NewMonitor(1, "m", nil, []check.Entry{c}, nil)
	assert.Error(t, err)

	_, err = NewMonitor(1, "m", []address.Pattern{address.MustParse("10.0.0.1")}, nil, nil)
	assert.Error(t, err)
}

func TestMonitor_MatchesByAddress(t *testing.T) {
	m := newMonitor(t, "10.0.0.1-10.0.0.10", mustCheck(t, 7, "uptime", "uptime.py"))

	a := peer("10.0.0.5", 4000)
	assert.True(t, m.Matches(a))
	assert.False(t, m.Matches(peer("10.0.0.11", 4000)))

	require.True(t, m.AddClient(a))
	assert.False(t, m.Matches(peer("10.0.0.5", 4001)), "second client from the same address")
	assert.False(t, m.AddClient(a))

	assert.False(t, m.RemoveClient(peer("10.0.0.5", 4001)))
	assert.True(t, m.RemoveClient(a))
	assert.True(t, m.Matches(a))
}

func TestMonitor_PerClientIsolation(t *testing.T) {
	m := newMonitor(t, "10.0.0.1-10.0.0.10", mustCheck(t, 7, "uptime", "uptime.py"))
	r := New([]*Monitor{m}, nil)

	a, b := peer("10.0.0.2", 4000), peer("10.0.0.3", 4000)
	r.Register(a)
	r.Register(b)

	ups, err := r.ProcessMessage(a, protocol.TypeCheckReply, []byte(`[{"id": 7, "status": 2}]`))
	require.NoError(t, err)
	require.Len(t, ups, 1)

	got := r.Store().ResolveChecks(ups[0].Checks)
	require.Len(t, got, 1)
	assert.Equal(t, check.StatusSevere, got[0].CurrentStatus)

	views := r.Snapshot()
	require.Len(t, views[0].Clients, 2)
	for _, cv := range views[0].Clients {
		switch cv.Address {
		case "10.0.0.2":
			assert.Equal(t, check.StatusSevere, cv.Checks[0].CurrentStatus)
		case "10.0.0.3":
			assert.Equal(t, check.StatusUnknown, cv.Checks[0].CurrentStatus)
		}
	}

	tmpl := m.Checks[0].(*check.Check)
	assert.Equal(t, check.StatusUnknown, tmpl.CurrentStatus, "template must stay untouched")
}

func TestRegistry_EndToEndReply(t *testing.T) {
	m := newMonitor(t, "10.0.0.1-10.0.0.10", mustCheck(t, 7, "uptime", "uptime.py"))
	log := logger.NewBufferLogger()
	r := New([]*Monitor{m}, log)

	p := peer("10.0.0.5", 4000)
	require.True(t, r.MatchesAnyMonitor(p))
	require.Equal(t, 1, r.Register(p))

	r.Poll(protocol.TypeCheck)
	require.Len(t, p.out, 1)
	assert.Equal(t, protocol.TypeCheck, p.out[0].typ)
	assert.JSONEq(t, `[{"id": 7, "path": "uptime.py"}]`, string(p.out[0].payload))

	ups, err := r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`[{"id":7,"status":0}]`))
	require.NoError(t, err)
	require.Len(t, ups, 1)

	checks := r.Store().ResolveChecks(ups[0].Checks)
	require.Len(t, checks, 1)
	assert.Equal(t, 7, checks[0].ID)
	assert.Equal(t, check.StatusOK, checks[0].CurrentStatus)
	assert.Equal(t, check.StatusUnknown, checks[0].PreviousStatus)

	contacts := r.Store().ResolveContacts(ups[0].Contacts)
	require.Len(t, contacts, 1)
	assert.Equal(t, "ops", contacts[0].Name)

	assert.True(t, log.Contains("CHECK REPLY from 10.0.0.5:4000 -> {id: 7, status: OK}"))
}

func TestRegistry_FreedHandlesAreSkipped(t *testing.T) {
	m := newMonitor(t, "10.0.0.1", mustCheck(t, 7, "uptime", "uptime.py"))
	r := New([]*Monitor{m}, nil)

	p := peer("10.0.0.1", 4000)
	r.Register(p)
	ups, err := r.ProcessMessage(p, protocol.TypeTestReply, []byte(`[{"id":7,"status":1}]`))
	require.NoError(t, err)
	require.Len(t, ups, 1)

	r.Unregister(p)
	assert.Empty(t, r.Store().ResolveChecks(ups[0].Checks))
	assert.Empty(t, r.Store().ResolveContacts(ups[0].Contacts))

	r.Register(peer("10.0.0.1", 4001))
	assert.Empty(t, r.Store().ResolveChecks(ups[0].Checks), "reused slot must not resolve")
}

func TestRegistry_ProcessMessageIgnoresOtherTypes(t *testing.T) {
	m := newMonitor(t, "10.0.0.1", mustCheck(t, 7, "uptime", "uptime.py"))
	log := logger.NewBufferLogger()
	r := New([]*Monitor{m}, log)
	p := peer("10.0.0.1", 4000)
	r.Register(p)

	ups, err := r.ProcessMessage(p, protocol.TypeCheck, []byte(`[{"id":7,"path":"x"}]`))
	assert.NoError(t, err)
	assert.Empty(t, ups)
	assert.True(t, log.HasLevel("warn"))

	_, err = r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`{"id":7}`))
	assert.Error(t, err)

	ups, err = r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`[{"id":99,"status":0}]`))
	assert.NoError(t, err)
	assert.Empty(t, ups, "unknown check ids change nothing")
}

func TestRegistry_DisabledMonitorIgnoresReplies(t *testing.T) {
	m := newMonitor(t, "10.0.0.1", mustCheck(t, 7, "uptime", "uptime.py"))
	r := New([]*Monitor{m}, nil)
	p := peer("10.0.0.1", 4000)
	r.Register(p)

	require.True(t, r.Disable([]int{100}))
	r.Poll(protocol.TypeCheck)
	assert.Empty(t, p.out)

	ups, err := r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`[{"id":7,"status":0}]`))
	require.NoError(t, err)
	assert.Empty(t, ups)

	require.True(t, r.Enable([]int{100}))
	ups, err = r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`[{"id":7,"status":0}]`))
	require.NoError(t, err)
	assert.Len(t, ups, 1)
}

func TestRegistry_DisableCheckReachesLiveCopies(t *testing.T) {
	load := mustCheck(t, 8, "load", "load.py")
	grp, err := check.NewGroup(20, "basics", []check.Entry{load, mustCheck(t, 9, "disk", "disk.py")})
	require.NoError(t, err)

	m := newMonitor(t, "10.0.0.1", grp)
	r := New([]*Monitor{m}, nil)
	p := peer("10.0.0.1", 4000)
	r.Register(p)

	assert.False(t, r.Disable([]int{12345}))
	require.True(t, r.Disable([]int{8}))

	r.Poll(protocol.TypeCheck)
	require.Len(t, p.out, 1)
	var reqs []check.Request
	require.NoError(t, json.Unmarshal(p.out[0].payload, &reqs))
	require.Len(t, reqs, 1)
	assert.Equal(t, 9, reqs[0].ID)

	ups, err := r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`[{"id":8,"status":0},{"id":9,"status":0}]`))
	require.NoError(t, err)
	require.Len(t, ups, 1)
	got := r.Store().ResolveChecks(ups[0].Checks)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].ID)

	views := r.Snapshot()
	assert.False(t, views[0].Clients[0].Checks[0].Enabled)
}

func TestRegistry_DisabledGroupSkipsMembers(t *testing.T) {
	grp, err := check.NewGroup(20, "basics", []check.Entry{mustCheck(t, 8, "load", "load.py")})
	require.NoError(t, err)

	m := newMonitor(t, "10.0.0.1", grp)
	r := New([]*Monitor{m}, nil)
	p := peer("10.0.0.1", 4000)
	r.Register(p)
	require.True(t, r.Disable([]int{20}))

	ups, err := r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`[{"id":8,"status":0}]`))
	require.NoError(t, err)
	assert.Empty(t, ups)
}

func TestRegistry_PollChecks(t *testing.T) {
	m := newMonitor(t, "10.0.0.1-10.0.0.9",
		mustCheck(t, 7, "uptime", "uptime.py"), mustCheck(t, 8, "load", "load.py"))
	r := New([]*Monitor{m}, nil)
	a, b := peer("10.0.0.1", 4000), peer("10.0.0.2", 4000)
	r.Register(a)
	r.Register(b)

	assert.Equal(t, 2, r.PollChecks(protocol.TypeTest, []int{8}))
	for _, p := range []*fakePeer{a, b} {
		require.Len(t, p.out, 1)
		assert.Equal(t, protocol.TypeTest, p.out[0].typ)
		assert.JSONEq(t, `[{"id": 8, "path": "load.py"}]`, string(p.out[0].payload))
	}

	assert.Zero(t, r.PollChecks(protocol.TypeTest, nil))
}

func TestRegistry_PollLogsSendErrors(t *testing.T) {
	m := newMonitor(t, "10.0.0.1", mustCheck(t, 7, "uptime", "uptime.py"))
	log := logger.NewBufferLogger()
	r := New([]*Monitor{m}, log)
	p := peer("10.0.0.1", 4000)
	p.err = errors.New("broken pipe")
	r.Register(p)

	r.Poll(protocol.TypeCheck)
	assert.True(t, log.Contains("broken pipe"))
}

func TestRegistry_DisabledContactsAreNotNotified(t *testing.T) {
	m := newMonitor(t, "10.0.0.1", mustCheck(t, 7, "uptime", "uptime.py"))
	r := New([]*Monitor{m}, nil)
	p := peer("10.0.0.1", 4000)
	r.Register(p)
	require.True(t, r.Disable([]int{50}))

	ups, err := r.ProcessMessage(p, protocol.TypeCheckReply, []byte(`[{"id":7,"status":0}]`))
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Empty(t, ups[0].Contacts)
}
