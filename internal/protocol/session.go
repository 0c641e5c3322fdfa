package protocol

import (
	"encoding/json"

	"github.com/radarmon/radar/internal/network"
)

// Session pairs a connection with its frame decoder.
type Session struct {
	*network.Conn
	dec *Decoder
}

// NewSession wraps c. Frames outside space abort the connection.
func NewSession(c *network.Conn, space TypeSpace) *Session {
	return &Session{Conn: c, dec: NewDecoder(space)}
}

// SendMessage writes one frame.
func (s *Session) SendMessage(t Type, payload []byte) error {
	_, err := Send(s.Conn, t, payload)
	return err
}

// SendJSON marshals v and writes it as one frame.
func (s *Session) SendJSON(t Type, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.SendMessage(t, payload)
}

// ReceiveMessage feeds the decoder from the connection.
func (s *Session) ReceiveMessage() (Frame, error) {
	return s.dec.Feed(s.Conn)
}

// Reset drops a partial frame, typically after reconnecting.
func (s *Session) Reset() {
	s.dec.Reset()
}
