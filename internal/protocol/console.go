package protocol

import "encoding/json"

// Query is the console request payload.
type Query struct {
	Action string `json:"action"`
	Token  string `json:"token,omitempty"`
}

// QueryReply is the console response payload.
type QueryReply struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}
