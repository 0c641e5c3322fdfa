package check

import (
	"encoding/json"
	"fmt"

	"github.com/radarmon/radar/internal/errors"
)

// Request is one entry of a CHECK or TEST payload.
type Request struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
	Args string `json:"args,omitempty"`
}

// StatusUpdate is one entry of a CHECK_REPLY or TEST_REPLY payload.
type StatusUpdate struct {
	ID      int             `json:"id"`
	Status  Status          `json:"status"`
	Details string          `json:"details,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON rejects entries without an id or a status.
func (u *StatusUpdate) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID      *int            `json:"id"`
		Status  *int            `json:"status"`
		Details string          `json:"details"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.ID == nil || aux.Status == nil {
		return errors.New(errors.ErrProtocol,
			"Missing id and/or status from check reply",
			"")
	}
	*u = StatusUpdate{
		ID:      *aux.ID,
		Status:  Status(*aux.Status),
		Details: aux.Details,
		Data:    cloneRaw(aux.Data),
	}
	return nil
}

// DecodeRequests parses a CHECK/TEST payload. Entries without an id or a
// path are returned separately so the caller can log them.
func DecodeRequests(payload []byte) (valid []Request, skipped []string, err error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrProtocol, "Couldn't parse check request", "")
	}

	for _, entry := range raw {
		var req Request
		idRaw, hasID := entry["id"]
		pathRaw, hasPath := entry["path"]
		if !hasID || !hasPath ||
			json.Unmarshal(idRaw, &req.ID) != nil ||
			json.Unmarshal(pathRaw, &req.Path) != nil || req.Path == "" {
			skipped = append(skipped, describe(entry))
			continue
		}
		if argsRaw, ok := entry["args"]; ok {
			_ = json.Unmarshal(argsRaw, &req.Args)
		}
		valid = append(valid, req)
	}
	return valid, skipped, nil
}

// DecodeReplies parses a CHECK_REPLY/TEST_REPLY payload.
func DecodeReplies(payload []byte) ([]StatusUpdate, error) {
	var updates []StatusUpdate
	if err := json.Unmarshal(payload, &updates); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrProtocol, "Couldn't parse check reply", "")
	}
	return updates, nil
}

func describe(entry map[string]json.RawMessage) string {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf("%v", entry)
	}
	return string(b)
}
