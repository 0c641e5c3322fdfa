package arena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_InsertGet(t *testing.T) {
	a := New[string]()
	h1 := a.Insert("one")
	h2 := a.Insert("two")

	v, ok := a.Get(h1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	v, ok = a.Get(h2)
	require.True(t, ok)
	assert.Equal(t, "two", v)
	assert.Equal(t, 2, a.Len())
}

func TestArena_ZeroHandle(t *testing.T) {
	a := New[int]()
	a.Insert(1)

	var h Handle
	assert.True(t, h.IsZero())
	_, ok := a.Get(h)
	assert.False(t, ok)
	assert.False(t, a.Remove(h))
}

func TestArena_RemoveInvalidates(t *testing.T) {
	a := New[int]()
	h := a.Insert(42)

	assert.True(t, a.Remove(h))
	_, ok := a.Get(h)
	assert.False(t, ok)
	assert.False(t, a.Remove(h), "double remove")
	assert.False(t, a.Update(h, func(v *int) { *v = 1 }))
	assert.Equal(t, 0, a.Len())
}

func TestArena_ReuseKeepsOldHandleInvalid(t *testing.T) {
	a := New[int]()
	old := a.Insert(1)
	require.True(t, a.Remove(old))

	fresh := a.Insert(2)
	assert.Equal(t, old.idx, fresh.idx, "slot is reused")
	assert.NotEqual(t, old.gen, fresh.gen)

	_, ok := a.Get(old)
	assert.False(t, ok)
	v, ok := a.Get(fresh)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestArena_Update(t *testing.T) {
	type rec struct{ n int }
	a := New[rec]()
	h := a.Insert(rec{n: 1})

	assert.True(t, a.Update(h, func(r *rec) { r.n++ }))
	v, _ := a.Get(h)
	assert.Equal(t, 2, v.n)
}

func TestArena_Concurrent(t *testing.T) {
	a := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := a.Insert(n)
				a.Update(h, func(v *int) { *v++ })
				_, _ = a.Get(h)
				a.Remove(h)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, a.Len())
}
