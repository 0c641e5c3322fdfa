package protocol

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/network"
)

// chunkedReader serves data in fixed chunks, reporting ErrDataNotReady
// between chunks the way a non-blocking socket does.
type chunkedReader struct {
	chunks [][]byte
	paused bool
	err    error
}

func newChunkedReader(data []byte, sizes ...int) *chunkedReader {
	r := &chunkedReader{}
	for _, n := range sizes {
		if n > len(data) {
			n = len(data)
		}
		r.chunks = append(r.chunks, data[:n])
		data = data[n:]
	}
	if len(data) > 0 {
		r.chunks = append(r.chunks, data)
	}
	return r
}

func (r *chunkedReader) Receive(buf []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, network.ErrDataNotReady
	}
	if r.paused {
		r.paused = false
		return 0, network.ErrDataNotReady
	}
	n := copy(buf, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
		r.paused = true
	}
	return n, nil
}

// feedAll keeps feeding until a frame or a non-NotReady error comes out.
func feedAll(t *testing.T, d *Decoder, r Receiver) (Frame, error) {
	t.Helper()
	for i := 0; i < 100000; i++ {
		f, err := d.Feed(r)
		if errors.Is(err, ErrNotReady) {
			continue
		}
		return f, err
	}
	t.Fatal("decoder never completed")
	return Frame{}, nil
}

func TestEncode(t *testing.T) {
	b, err := Encode(TypeCheck, OptionNone, []byte(`[{"id":7}]`))
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 0, 10}, b[:HeaderSize])
	assert.Equal(t, `[{"id":7}]`, string(b[HeaderSize:]))

	_, err = Encode(TypeCheck, OptionNone, nil)
	assert.True(t, radarerrors.IsCode(err, radarerrors.ErrProtocol))

	_, err = Encode(TypeCheck, OptionNone, make([]byte, MaxPayload+1))
	assert.True(t, radarerrors.IsCode(err, radarerrors.ErrProtocol))

	b, err = Encode(TypeCheck, OptionNone, make([]byte, MaxPayload))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, b[2:4])
}

func TestRoundTrip_SingleShot(t *testing.T) {
	for _, typ := range []Type{TypeTest, TypeTestReply, TypeCheck, TypeCheckReply} {
		payload := []byte(`[{"id":1,"path":"a.sh"}]`)
		packed, err := Encode(typ, OptionNone, payload)
		require.NoError(t, err)

		d := NewDecoder(CheckTypes)
		f, err := feedAll(t, d, newChunkedReader(packed))
		require.NoError(t, err)
		assert.Equal(t, typ, f.Type)
		assert.Equal(t, payload, f.Payload)
		assert.Zero(t, d.Buffered())
	}
}

func TestRoundTrip_ChunkedEqualsSingleShot(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		size := 1 + rng.Intn(4096)
		if i == 0 {
			size = MaxPayload
		}
		payload := make([]byte, size)
		rng.Read(payload)
		typ := Type(rng.Intn(4))

		packed, err := Encode(typ, OptionNone, payload)
		require.NoError(t, err)

		var sizes []int
		for rest := len(packed); rest > 0; {
			n := 1 + rng.Intn(7)
			sizes = append(sizes, n)
			rest -= n
		}

		f, err := feedAll(t, NewDecoder(CheckTypes), newChunkedReader(packed, sizes...))
		require.NoError(t, err)
		assert.Equal(t, typ, f.Type)
		assert.True(t, bytes.Equal(payload, f.Payload))
	}
}

func TestDecoder_BackToBackFrames(t *testing.T) {
	a, _ := Encode(TypeCheck, OptionNone, []byte("first"))
	b, _ := Encode(TypeTest, OptionNone, []byte("second"))
	r := newChunkedReader(append(a, b...), 3, 5, 2)

	d := NewDecoder(CheckTypes)
	f1, err := feedAll(t, d, r)
	require.NoError(t, err)
	f2, err := feedAll(t, d, r)
	require.NoError(t, err)

	assert.Equal(t, "first", string(f1.Payload))
	assert.Equal(t, TypeTest, f2.Type)
	assert.Equal(t, "second", string(f2.Payload))
}

func TestDecoder_AbortOnBadHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"type out of range", []byte{4, 0, 0, 1}},
		{"options out of mask", []byte{2, 2, 0, 1}},
		{"zero length", []byte{2, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			good, _ := Encode(TypeCheckReply, OptionNone, []byte("ok"))
			r := newChunkedReader(append(append([]byte{}, tt.header...), good...), len(tt.header))

			d := NewDecoder(CheckTypes)
			_, err := feedAll(t, d, r)
			require.ErrorIs(t, err, network.ErrAbort)
			assert.Zero(t, d.Buffered(), "buffer reset after abort")

			f, err := feedAll(t, d, r)
			require.NoError(t, err)
			assert.Equal(t, TypeCheckReply, f.Type)
			assert.Equal(t, "ok", string(f.Payload))
		})
	}
}

func TestDecoder_ConsoleTypeSpace(t *testing.T) {
	query, _ := Encode(TypeQuery, OptionNone, []byte(`{"action":"list()"}`))
	f, err := feedAll(t, NewDecoder(ConsoleTypes), newChunkedReader(query))
	require.NoError(t, err)
	assert.Equal(t, TypeQuery, f.Type)

	check, _ := Encode(TypeCheck, OptionNone, []byte("x"))
	_, err = feedAll(t, NewDecoder(ConsoleTypes), newChunkedReader(check))
	assert.ErrorIs(t, err, network.ErrAbort)
}

func TestDecoder_Disconnect(t *testing.T) {
	packed, _ := Encode(TypeCheck, OptionNone, []byte("partial"))
	r := newChunkedReader(packed[:6])
	r.err = network.ErrDisconnected

	d := NewDecoder(CheckTypes)
	_, err := feedAll(t, d, r)
	assert.ErrorIs(t, err, network.ErrDisconnected)
	assert.Zero(t, d.Buffered())
}

func TestTypeSpace(t *testing.T) {
	assert.Equal(t, "CHECK REPLY", CheckTypes.Name(TypeCheckReply))
	assert.Equal(t, "QUERY REPLY", ConsoleTypes.Name(TypeQueryReply))
	assert.Equal(t, "TYPE(9)", CheckTypes.Name(9))
	assert.False(t, ConsoleTypes.Valid(TypeCheck))
}

// slowSender accepts at most max bytes per call and would block every other
// call.
type slowSender struct {
	buf     bytes.Buffer
	max     int
	block   bool
	waits   int
	failAt  int
	written int
}

func (s *slowSender) Send(b []byte) (int, error) {
	if s.block {
		s.block = false
		return 0, network.ErrDataNotReady
	}
	s.block = true
	if s.failAt > 0 && s.written >= s.failAt {
		return 0, &network.SendError{Addr: "test", Err: errors.New("broken pipe")}
	}
	n := len(b)
	if n > s.max {
		n = s.max
	}
	s.buf.Write(b[:n])
	s.written += n
	return n, nil
}

func (s *slowSender) WaitWritable() error {
	s.waits++
	return nil
}

func TestSend_PartialWrites(t *testing.T) {
	s := &slowSender{max: 3}
	payload := []byte(`[{"id":7,"status":0}]`)

	n, err := Send(s, TypeCheckReply, payload)
	require.NoError(t, err)
	assert.Equal(t, HeaderSize+len(payload), n)
	assert.Positive(t, s.waits)

	f, err := feedAll(t, NewDecoder(CheckTypes), newChunkedReader(s.buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, payload, f.Payload)
}

func TestSend_Error(t *testing.T) {
	s := &slowSender{max: 2, failAt: 4}
	n, err := Send(s, TypeCheck, []byte("payload"))
	var sendErr *network.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, 4, n)
}
