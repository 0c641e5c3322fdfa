// Package ident holds the identity primitives shared by checks, contacts and
// monitors: a monotonic id generator and the Switchable {id, enabled} value.
package ident

import "sync/atomic"

// Generator hands out process-wide unique, monotonically increasing ids.
// Construct one per process and pass it to the config builders.
type Generator struct {
	last atomic.Int64
}

// NewGenerator returns a generator whose first id is 1.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next id.
func (g *Generator) Next() int {
	return int(g.last.Add(1))
}

// Switchable is composed into every entity that can be addressed by id and
// switched on or off from the console.
type Switchable struct {
	ID      int  `json:"id"`
	Enabled bool `json:"enabled"`
}

// Listed reports whether the entity's id appears in ids.
func (s Switchable) Listed(ids []int) bool {
	for _, id := range ids {
		if id == s.ID {
			return true
		}
	}
	return false
}

// Enable switches the entity on when its id is listed.
func (s *Switchable) Enable(ids []int) bool {
	if !s.Listed(ids) {
		return false
	}
	s.Enabled = true
	return true
}

// Disable switches the entity off when its id is listed.
func (s *Switchable) Disable(ids []int) bool {
	if !s.Listed(ids) {
		return false
	}
	s.Enabled = false
	return true
}
