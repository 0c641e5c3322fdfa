// Package check models health checks: the Check leaf, named groups of
// checks, and the request/reply entries carried on the wire.
package check

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"strings"

	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/ident"
)

// Key is the identity of a check. Two checks with the same key are the same
// check regardless of their ids.
type Key struct {
	Name string
	Path string
	Args string
}

// Check is a named executable health probe and its latest known status.
type Check struct {
	ident.Switchable
	Name           string          `json:"name"`
	Path           string          `json:"path"`
	Args           string          `json:"args"`
	CurrentStatus  Status          `json:"current_status"`
	PreviousStatus Status          `json:"previous_status"`
	Details        string          `json:"details"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// New creates an enabled check in the UNKNOWN state.
func New(id int, name, path, args string) (*Check, error) {
	if name == "" || path == "" {
		return nil, errors.New(errors.ErrCheck,
			"Missing name and/or path from check definition",
			"Every check needs both a name and a path")
	}
	return &Check{
		Switchable:     ident.Switchable{ID: id, Enabled: true},
		Name:           name,
		Path:           path,
		Args:           args,
		CurrentStatus:  StatusUnknown,
		PreviousStatus: StatusUnknown,
	}, nil
}

// Key returns the (name, path, args) identity of the check.
func (c *Check) Key() Key {
	return Key{Name: c.Name, Path: c.Path, Args: c.Args}
}

// Equal reports whether both checks have the same identity.
func (c *Check) Equal(other *Check) bool {
	return other != nil && c.Key() == other.Key()
}

// Identity is the canonical string used for deduplication.
func (c *Check) Identity() string {
	return strings.Join([]string{"check", c.Name, c.Path, c.Args}, "\x00")
}

// Hash is an FNV-64a digest of the identity.
func (c *Check) Hash() uint64 {
	return hashString(c.Identity())
}

// UpdateStatus applies u when the check is enabled, u is addressed to this
// check and u carries a valid status.
func (c *Check) UpdateStatus(u StatusUpdate) bool {
	if !c.Enabled || u.ID != c.ID || !u.Status.Valid() {
		return false
	}
	c.PreviousStatus = c.CurrentStatus
	c.CurrentStatus = u.Status
	c.Details = u.Details
	c.Data = cloneRaw(u.Data)
	return true
}

// Request returns the CHECK/TEST entry asking a client to run this check.
func (c *Check) Request() Request {
	return Request{ID: c.ID, Path: c.Path, Args: c.Args}
}

// Reply returns the CHECK_REPLY entry describing the current status.
func (c *Check) Reply() StatusUpdate {
	return StatusUpdate{
		ID:      c.ID,
		Status:  c.CurrentStatus,
		Details: c.Details,
		Data:    cloneRaw(c.Data),
	}
}

// Clone returns a deep copy that keeps the id.
func (c *Check) Clone() *Check {
	cp := *c
	cp.Data = cloneRaw(c.Data)
	return &cp
}

// Requests implements Entry.
func (c *Check) Requests() []Request {
	if !c.Enabled {
		return nil
	}
	return []Request{c.Request()}
}

// Flatten implements Entry.
func (c *Check) Flatten() []*Check {
	return []*Check{c}
}

// CloneEntry implements Entry.
func (c *Check) CloneEntry() Entry {
	return c.Clone()
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if len(r) == 0 || bytes.Equal(r, []byte("null")) {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}
