// Package engine runs health checks on monitored hosts. Checks wait in a FIFO
// queue until a running slot frees up; a periodic tick reaps finished
// processes, terminates overdue ones and emits replies in batches.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/radarmon/radar/internal/check"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/protocol"
)

// StopInterval is how long Run waits for a job before ticking.
const StopInterval = 200 * time.Millisecond

// Job is a batch of check requests received from the server.
type Job struct {
	Type     protocol.Type
	Requests []check.Request
}

// Batch holds the replies of one tick for one reply type.
type Batch struct {
	Type    protocol.Type
	Replies []check.StatusUpdate
}

// Option configures an Engine.
type Option func(*Engine)

// WithLauncher replaces the os/exec launcher.
func WithLauncher(l Launcher) Option {
	return func(e *Engine) { e.launcher = l }
}

// WithPlatform replaces the detected platform.
func WithPlatform(p Platform) Option {
	return func(e *Engine) { e.platform = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine is the bounded check scheduler.
type Engine struct {
	cfg      Config
	platform Platform
	launcher Launcher
	log      logger.Logger
	now      func() time.Time

	jobs chan Job
	out  chan Batch

	mu      sync.Mutex
	waiting []*execution
	running []*execution
}

// New validates cfg and builds an engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		launcher: ExecLauncher{},
		log:      logger.Noop(),
		now:      time.Now,
		jobs:     make(chan Job, 64),
		out:      make(chan Batch, 64),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.platform == nil {
		p, err := NewPlatform(DetectKind())
		if err != nil {
			return nil, err
		}
		e.platform = p
	}
	if !e.platform.EnforcesOwnership() {
		e.cfg.EnforceOwnership = false
	}
	return e, nil
}

// Jobs is the input channel drained by Run.
func (e *Engine) Jobs() chan<- Job { return e.jobs }

// Results is the output channel fed by Run.
func (e *Engine) Results() <-chan Batch { return e.out }

// Submit queues every request of j.
func (e *Engine) Submit(j Job) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, req := range j.Requests {
		ex, err := newExecution(j.Type, req)
		if err != nil {
			e.log.Warn("Skipping check request %d: %v", req.ID, err)
			continue
		}
		e.waiting = append(e.waiting, ex)
	}
}

// Waiting returns the number of queued checks.
func (e *Engine) Waiting() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.waiting)
}

// Running returns the number of checks occupying a slot.
func (e *Engine) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

// Tick performs one scheduling pass and returns the replies it produced,
// one batch per reply type in order of first appearance.
func (e *Engine) Tick() []Batch {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var done []*execution

	if len(e.running) >= e.cfg.Concurrency {
		for _, ex := range e.running {
			if ex.overdue(e.cfg.timeout(), now) {
				e.log.Warn("Check '%s %s' exceeded %gs, terminating", ex.check.Path, ex.check.Args, e.cfg.Timeout)
				ex.terminate(e.cfg.Timeout)
			}
		}
	}

	still := e.running[:0]
	for _, ex := range e.running {
		switch {
		case ex.state == stateTimedOut:
			done = append(done, ex)
		case ex.finished():
			ex.collect()
			done = append(done, ex)
		default:
			still = append(still, ex)
		}
	}
	for i := len(still); i < len(e.running); i++ {
		e.running[i] = nil
	}
	e.running = still

	for len(e.running) < e.cfg.Concurrency && len(e.waiting) > 0 {
		ex := e.waiting[0]
		e.waiting[0] = nil
		e.waiting = e.waiting[1:]

		ex.start(e.cfg, e.platform, e.launcher, now)
		if ex.state == stateError {
			e.log.Warn("Check '%s' failed to start: %s", ex.check.Path, ex.check.Details)
			done = append(done, ex)
			continue
		}
		e.log.Debug("Started check '%s %s'", ex.check.Path, ex.check.Args)
		e.running = append(e.running, ex)
	}

	return batches(done)
}

func batches(done []*execution) []Batch {
	var out []Batch
	index := map[protocol.Type]int{}
	for _, ex := range done {
		t := replyType(ex.kind)
		i, ok := index[t]
		if !ok {
			i = len(out)
			index[t] = i
			out = append(out, Batch{Type: t})
		}
		out[i].Replies = append(out[i].Replies, ex.reply())
	}
	return out
}

func replyType(t protocol.Type) protocol.Type {
	if t == protocol.TypeTest {
		return protocol.TypeTestReply
	}
	return protocol.TypeCheckReply
}

// Run drains jobs and ticks until ctx is done, then kills every running
// check.
func (e *Engine) Run(ctx context.Context) error {
	defer e.Stop()

	timer := time.NewTimer(StopInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-e.jobs:
			e.Submit(j)
		case <-timer.C:
			timer.Reset(StopInterval)
		}

		for _, b := range e.Tick() {
			select {
			case e.out <- b:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Stop kills every running check and drops the wait queue.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ex := range e.running {
		if ex.proc != nil {
			_ = ex.proc.Kill()
		}
	}
	e.running = nil
	e.waiting = nil
}
