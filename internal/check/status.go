package check

import (
	"fmt"
	"strings"

	"github.com/radarmon/radar/internal/errors"
)

// Status is the outcome of a check run.
type Status int

const (
	StatusError   Status = -1
	StatusOK      Status = 0
	StatusWarning Status = 1
	StatusSevere  Status = 2
	StatusUnknown Status = 3
	StatusTimeout Status = 4
)

var statusNames = map[Status]string{
	StatusError:   "ERROR",
	StatusOK:      "OK",
	StatusWarning: "WARNING",
	StatusSevere:  "SEVERE",
	StatusUnknown: "UNKNOWN",
	StatusTimeout: "TIMEOUT",
}

// Valid reports whether s is one of the six defined statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// String returns the upper-case status name, or "Status(n)" when invalid.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus converts a status name such as "ok" or "Warning" to a Status.
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == upper {
			return s, nil
		}
	}
	return StatusUnknown, errors.New(errors.ErrCheck,
		fmt.Sprintf("Invalid status value: '%s'", name),
		"Use one of ERROR, OK, WARNING, SEVERE, UNKNOWN or TIMEOUT")
}
