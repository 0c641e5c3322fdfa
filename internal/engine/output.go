package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/radarmon/radar/internal/check"
)

// parseOutput turns a check's stdout into a status update. Keys are matched
// case-insensitively and the status is given by name, e.g.
// {"Status": "ok", "details": "load 0.1", "data": {...}}.
func parseOutput(id int, out []byte) (check.StatusUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		return check.StatusUpdate{}, fmt.Errorf("couldn't parse JSON from check output. Details : %v", err)
	}

	fields := make(map[string]json.RawMessage, 3)
	for k, v := range raw {
		switch lk := strings.ToLower(k); lk {
		case "status", "details", "data":
			fields[lk] = v
		}
	}

	var name string
	if err := json.Unmarshal(fields["status"], &name); err != nil || name == "" {
		return check.StatusUpdate{}, fmt.Errorf("missing or invalid 'status' from check output")
	}
	status, err := check.ParseStatus(name)
	if err != nil {
		return check.StatusUpdate{}, fmt.Errorf("missing or invalid 'status' from check output")
	}

	u := check.StatusUpdate{ID: id, Status: status}
	if d, ok := fields["details"]; ok {
		if err := json.Unmarshal(d, &u.Details); err != nil {
			u.Details = string(d)
		}
	}
	if d, ok := fields["data"]; ok && string(d) != "null" {
		u.Data = append(json.RawMessage(nil), d...)
	}
	return u, nil
}
