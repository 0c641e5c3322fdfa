package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/protocol"
)

type state int

const (
	stateUnknown state = iota
	stateRunning
	stateCompleted
	stateTimedOut
	stateError
)

func (s state) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateCompleted:
		return "completed"
	case stateTimedOut:
		return "timed out"
	case stateError:
		return "error"
	}
	return "unknown"
}

// execution tracks one check from admission to its reply.
type execution struct {
	kind    protocol.Type
	check   *check.Check
	proc    Process
	started time.Time
	state   state
}

func newExecution(kind protocol.Type, req check.Request) (*execution, error) {
	c, err := check.New(req.ID, req.Path, req.Path, req.Args)
	if err != nil {
		return nil, err
	}
	return &execution{kind: kind, check: c}, nil
}

func (e *execution) fail(details string) {
	e.state = stateError
	e.check.CurrentStatus = check.StatusError
	e.check.Details = details
	e.proc = nil
}

// start spawns the check without waiting for it.
func (e *execution) start(cfg Config, p Platform, l Launcher, now time.Time) {
	argv, err := p.Command(cfg.ChecksDir, e.check.Path, e.check.Args)
	if err != nil {
		e.fail(fmt.Sprintf("Error - %v.", err))
		return
	}

	if cfg.EnforceOwnership && p.EnforcesOwnership() {
		if err := p.VerifyOwnership(argv[0], cfg.RunAsUser, cfg.RunAsGroup); err != nil {
			e.fail(fmt.Sprintf("Error - %v.", capitalize(err.Error())))
			return
		}
	}

	proc, err := l.Launch(argv, cfg.ChecksDir)
	if err != nil {
		e.fail(fmt.Sprintf("Error - Couldn't run : %s check. Details : %v.", argv[0], err))
		return
	}
	e.proc = proc
	e.started = now
	e.state = stateRunning
}

func (e *execution) finished() bool {
	if e.proc == nil {
		return true
	}
	select {
	case <-e.proc.Done():
		return true
	default:
		return false
	}
}

func (e *execution) overdue(limit time.Duration, now time.Time) bool {
	return e.state == stateRunning && !e.finished() && now.Sub(e.started) > limit
}

func (e *execution) terminate(seconds float64) {
	if e.proc != nil {
		_ = e.proc.Kill()
	}
	e.proc = nil
	e.state = stateTimedOut
	e.check.CurrentStatus = check.StatusTimeout
	e.check.Details = fmt.Sprintf(
		"Check '%s %s' was forcibly terminated. Maximum check execution time (%g seconds) exceeded.",
		e.check.Path, e.check.Args, seconds)
}

// collect parses the output of a finished process into the check.
func (e *execution) collect() {
	if e.state != stateRunning || e.proc == nil {
		return
	}
	u, err := parseOutput(e.check.ID, e.proc.Output())
	e.proc = nil
	if err != nil {
		msg := err.Error()
		if !strings.HasSuffix(msg, ".") {
			msg += "."
		}
		e.fail("Error - " + capitalize(msg))
		return
	}
	e.check.UpdateStatus(u)
	e.state = stateCompleted
}

func (e *execution) reply() check.StatusUpdate {
	return e.check.Reply()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
