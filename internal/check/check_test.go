package check

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCheck(t *testing.T, id int, name, path, args string) *Check {
	t.Helper()
	c, err := New(id, name, path, args)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	c := mustCheck(t, 1, "load", "load.sh", "-w 5")
	assert.Equal(t, StatusUnknown, c.CurrentStatus)
	assert.Equal(t, StatusUnknown, c.PreviousStatus)
	assert.True(t, c.Enabled)

	_, err := New(2, "", "load.sh", "")
	assert.Error(t, err)
	_, err = New(3, "load", "", "")
	assert.Error(t, err)
}

func TestCheck_IdentityIgnoresID(t *testing.T) {
	a := mustCheck(t, 1, "a", "p", "x")
	b := mustCheck(t, 2, "a", "p", "x")
	c := mustCheck(t, 3, "a", "p", "y")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())

	set := map[Key]*Check{}
	for _, ch := range []*Check{a, b} {
		set[ch.Key()] = ch
	}
	assert.Len(t, set, 1)

	deduped := Dedup([]Entry{a, b})
	require.Len(t, deduped, 1)
	assert.Equal(t, 1, deduped[0].(*Check).ID)
}

func TestCheck_UpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		update  StatusUpdate
		want    bool
	}{
		{"matching", true, StatusUpdate{ID: 7, Status: StatusOK}, true},
		{"wrong id", true, StatusUpdate{ID: 8, Status: StatusOK}, false},
		{"disabled", false, StatusUpdate{ID: 7, Status: StatusOK}, false},
		{"invalid status", true, StatusUpdate{ID: 7, Status: Status(9)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCheck(t, 7, "uptime", "uptime.py", "")
			c.Enabled = tt.enabled
			assert.Equal(t, tt.want, c.UpdateStatus(tt.update))
			if tt.want {
				assert.Equal(t, tt.update.Status, c.CurrentStatus)
				assert.Equal(t, StatusUnknown, c.PreviousStatus)
			} else {
				assert.Equal(t, StatusUnknown, c.CurrentStatus)
			}
		})
	}
}

func TestCheck_UpdateStatusShiftsPrevious(t *testing.T) {
	c := mustCheck(t, 1, "disk", "disk.sh", "")
	c.UpdateStatus(StatusUpdate{ID: 1, Status: StatusWarning, Details: "80%"})
	c.UpdateStatus(StatusUpdate{ID: 1, Status: StatusSevere, Data: json.RawMessage(`{"used":95}`)})

	assert.Equal(t, StatusSevere, c.CurrentStatus)
	assert.Equal(t, StatusWarning, c.PreviousStatus)
	assert.Empty(t, c.Details)
	assert.JSONEq(t, `{"used":95}`, string(c.Data))
}

func TestCheck_RequestAndReply(t *testing.T) {
	c := mustCheck(t, 7, "uptime", "uptime.py", "")
	b, err := json.Marshal(c.Request())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"path":"uptime.py"}`, string(b))

	c.Args = "-v"
	b, _ = json.Marshal(c.Request())
	assert.JSONEq(t, `{"id":7,"path":"uptime.py","args":"-v"}`, string(b))

	c.UpdateStatus(StatusUpdate{ID: 7, Status: StatusOK})
	b, _ = json.Marshal(c.Reply())
	assert.JSONEq(t, `{"id":7,"status":0}`, string(b))
}

func TestCheck_CloneIsDeep(t *testing.T) {
	c := mustCheck(t, 1, "a", "a.sh", "")
	c.Data = json.RawMessage(`[1]`)
	cp := c.Clone()
	cp.Data[0] = 'x'
	cp.UpdateStatus(StatusUpdate{ID: 1, Status: StatusOK})

	assert.Equal(t, 1, cp.ID)
	assert.Equal(t, StatusUnknown, c.CurrentStatus)
	assert.Equal(t, `[1]`, string(c.Data))
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"ok", StatusOK, false},
		{"OK", StatusOK, false},
		{"Warning", StatusWarning, false},
		{"severe", StatusSevere, false},
		{"error", StatusError, false},
		{"timeout", StatusTimeout, false},
		{"unknown", StatusUnknown, false},
		{"fine", StatusUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "OK", StatusOK.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestDecodeRequests(t *testing.T) {
	valid, skipped, err := DecodeRequests([]byte(`[
		{"id": 7, "path": "uptime.py"},
		{"id": 8, "path": "disk.sh", "args": "-h /"},
		{"path": "noid.sh"},
		{"id": 9}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []Request{
		{ID: 7, Path: "uptime.py"},
		{ID: 8, Path: "disk.sh", Args: "-h /"},
	}, valid)
	assert.Len(t, skipped, 2)

	_, _, err = DecodeRequests([]byte(`{`))
	assert.Error(t, err)
}

func TestDecodeReplies(t *testing.T) {
	updates, err := DecodeReplies([]byte(`[{"id":7,"status":0},{"id":8,"status":2,"details":"full","data":{"pct":99}}]`))
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, StatusUpdate{ID: 7, Status: StatusOK}, updates[0])
	assert.Equal(t, "full", updates[1].Details)
	assert.JSONEq(t, `{"pct":99}`, string(updates[1].Data))

	_, err = DecodeReplies([]byte(`[{"id":7}]`))
	assert.Error(t, err)
}
