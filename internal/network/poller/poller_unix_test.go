//go:build unix

package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestBackends_Readiness(t *testing.T) {
	for _, backend := range Available() {
		t.Run(string(backend), func(t *testing.T) {
			p, err := New(backend)
			require.NoError(t, err)
			defer p.Close()
			assert.Equal(t, backend, p.Backend())

			a, b := socketPair(t)
			require.NoError(t, p.Register(a))

			ready, err := p.Wait(20 * time.Millisecond)
			require.NoError(t, err)
			assert.Empty(t, ready, "nothing written yet")

			_, err = unix.Write(b, []byte("x"))
			require.NoError(t, err)

			ready, err = p.Wait(time.Second)
			require.NoError(t, err)
			assert.Equal(t, []int{a}, ready)

			// Level triggered: still ready until drained.
			ready, err = p.Wait(time.Second)
			require.NoError(t, err)
			assert.Equal(t, []int{a}, ready)

			require.NoError(t, p.Unregister(a))
			ready, err = p.Wait(20 * time.Millisecond)
			require.NoError(t, err)
			assert.Empty(t, ready)

			assert.ErrorIs(t, p.Unregister(a), ErrNotRegistered)
		})
	}
}

func TestBackends_ManyDescriptors(t *testing.T) {
	for _, backend := range Available() {
		t.Run(string(backend), func(t *testing.T) {
			p, err := New(backend)
			require.NoError(t, err)
			defer p.Close()

			var readers, writers []int
			for i := 0; i < 5; i++ {
				r, w := socketPair(t)
				require.NoError(t, p.Register(r))
				readers = append(readers, r)
				writers = append(writers, w)
			}

			_, err = unix.Write(writers[1], []byte("x"))
			require.NoError(t, err)
			_, err = unix.Write(writers[3], []byte("x"))
			require.NoError(t, err)

			ready, err := p.Wait(time.Second)
			require.NoError(t, err)
			assert.ElementsMatch(t, []int{readers[1], readers[3]}, ready)
		})
	}
}

func TestNew_Auto(t *testing.T) {
	p, err := New(Auto)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, Available()[0], p.Backend())
}

func TestSelect_RejectsLargeFD(t *testing.T) {
	p, err := New(Select)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Register(fdSetSize), ErrFDTooLarge)
}
