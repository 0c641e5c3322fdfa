// Package protocol implements Radar's framing: a 4-byte header (type,
// options, big-endian payload length) followed by a JSON payload. Decoding is
// incremental so frames can be reassembled across partial non-blocking reads.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/network"
)

// Type identifies a frame within a TypeSpace.
type Type uint8

// Check protocol types.
const (
	TypeTest       Type = 0
	TypeTestReply  Type = 1
	TypeCheck      Type = 2
	TypeCheckReply Type = 3
)

// Console protocol types.
const (
	TypeQuery      Type = 0
	TypeQueryReply Type = 1
)

// Options is the header bitmask.
type Options uint8

const (
	OptionNone Options = 0x00
	// OptionCompress is reserved and never set.
	OptionCompress Options = 0x01

	optionMask = OptionNone | OptionCompress
)

const (
	HeaderSize = 4
	MaxPayload = 0xffff
)

// ErrNotReady means a frame is only partially available. Feed again once the
// socket is readable.
var ErrNotReady = errors.New("message not ready")

// TypeSpace is the set of frame types a decoder accepts.
type TypeSpace struct {
	names []string
}

var (
	// CheckTypes is the server/client type space.
	CheckTypes = TypeSpace{names: []string{"TEST", "TEST REPLY", "CHECK", "CHECK REPLY"}}
	// ConsoleTypes is the console type space.
	ConsoleTypes = TypeSpace{names: []string{"QUERY", "QUERY REPLY"}}
)

// Valid reports whether t belongs to the space.
func (s TypeSpace) Valid(t Type) bool {
	return int(t) < len(s.names)
}

// Name returns the human name of t.
func (s TypeSpace) Name(t Type) string {
	if s.Valid(t) {
		return s.names[t]
	}
	return fmt.Sprintf("TYPE(%d)", uint8(t))
}

// Frame is one complete message.
type Frame struct {
	Type    Type
	Options Options
	Payload []byte
}

// Encode packs a frame. The payload must be 1 to MaxPayload bytes long.
func Encode(t Type, opts Options, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, radarerrors.New(radarerrors.ErrProtocol, "Refusing to encode an empty payload", "")
	}
	if len(payload) > MaxPayload {
		return nil, radarerrors.New(radarerrors.ErrProtocol,
			fmt.Sprintf("Payload of %d bytes exceeds %d bytes", len(payload), MaxPayload),
			"Split the checks across several monitors")
	}

	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(t)
	out[1] = byte(opts)
	binary.BigEndian.PutUint16(out[2:4], uint16(len(payload)))
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Receiver is the read half of a transport.
type Receiver interface {
	Receive(buf []byte) (int, error)
}

// Sender is the write half of a transport.
type Sender interface {
	Send(b []byte) (int, error)
	// WaitWritable blocks for a bounded time until Send may make progress.
	WaitWritable() error
}

// Decoder reassembles frames from a byte stream. It is not safe for
// concurrent use; keep one per connection.
type Decoder struct {
	space TypeSpace
	buf   []byte
}

// NewDecoder returns a decoder accepting the types of space.
func NewDecoder(space TypeSpace) *Decoder {
	return &Decoder{space: space, buf: make([]byte, 0, HeaderSize)}
}

// Reset drops any partial frame.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Buffered returns the number of bytes of the partial frame held.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) target() int {
	if len(d.buf) < HeaderSize {
		return HeaderSize
	}
	return HeaderSize + int(binary.BigEndian.Uint16(d.buf[2:4]))
}

func (d *Decoder) validHeader() bool {
	t, opts := Type(d.buf[0]), Options(d.buf[1])
	length := binary.BigEndian.Uint16(d.buf[2:4])
	return d.space.Valid(t) && opts&^optionMask == 0 && length != 0
}

// Feed reads whatever r has available and returns a frame once complete.
// Returns ErrNotReady while the frame is partial, network.ErrDisconnected
// or a receive error when the transport fails, and an error wrapping
// network.ErrAbort when the header is invalid. The buffer is reset after
// every complete frame and every abort.
func (d *Decoder) Feed(r Receiver) (Frame, error) {
	for {
		want := d.target()
		if len(d.buf) == want && want > HeaderSize {
			return d.complete(), nil
		}

		chunk := make([]byte, want-len(d.buf))
		n, err := r.Receive(chunk)
		if n > 0 {
			d.buf = append(d.buf, chunk[:n]...)
		}

		if len(d.buf) == HeaderSize && n > 0 && !d.validHeader() {
			header := fmt.Sprintf("% x", d.buf)
			d.Reset()
			return Frame{}, fmt.Errorf("%w: invalid header [%s]", network.ErrAbort, header)
		}

		if err != nil {
			if errors.Is(err, network.ErrDataNotReady) {
				return Frame{}, ErrNotReady
			}
			d.Reset()
			return Frame{}, err
		}
		if n == 0 {
			return Frame{}, ErrNotReady
		}
	}
}

func (d *Decoder) complete() Frame {
	f := Frame{
		Type:    Type(d.buf[0]),
		Options: Options(d.buf[1]),
		Payload: append([]byte(nil), d.buf[HeaderSize:]...),
	}
	d.Reset()
	return f
}

// Send encodes a frame and writes all of it, waiting for writability when the
// socket is full. It returns the number of bytes written.
func Send(s Sender, t Type, payload []byte) (int, error) {
	packed, err := Encode(t, OptionNone, payload)
	if err != nil {
		return 0, err
	}

	sent := 0
	for sent < len(packed) {
		n, err := s.Send(packed[sent:])
		sent += n
		switch {
		case err == nil:
		case errors.Is(err, network.ErrDataNotReady):
			if err := s.WaitWritable(); err != nil {
				return sent, err
			}
		default:
			return sent, err
		}
	}
	return sent, nil
}
