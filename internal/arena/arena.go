// Package arena stores values behind generation-checked handles so that
// records crossing goroutines never carry pointers into live state. A handle
// whose slot was freed, or freed and reused, no longer resolves.
package arena

import "sync"

// Handle refers to one slot of an Arena. The zero Handle is never valid.
type Handle struct {
	idx uint32
	gen uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena is a concurrency-safe slab of T values addressed by Handle.
type Arena[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
}

// New returns an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.value = v
		s.live = true
		return Handle{idx: idx, gen: s.gen}
	}

	a.slots = append(a.slots, slot[T]{value: v, gen: 1, live: true})
	return Handle{idx: uint32(len(a.slots) - 1), gen: 1}
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], bool) {
	if h.IsZero() || int(h.idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.idx]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return s, true
}

// Get returns the value behind h. The value is returned by copy, so T should
// not hold references that the owner mutates later.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Update runs fn on the stored value under the write lock. It reports false
// when h no longer resolves.
func (a *Arena[T]) Update(h Handle, fn func(v *T)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.lookup(h)
	if !ok {
		return false
	}
	fn(&s.value)
	return true
}

// Remove frees the slot behind h. It reports whether h was live.
func (a *Arena[T]) Remove(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.lookup(h)
	if !ok {
		return false
	}
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.idx)
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots) - len(a.free)
}
