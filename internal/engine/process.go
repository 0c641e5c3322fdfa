package engine

import (
	"bytes"
	"os/exec"
	"sync"
)

// Process is a spawned check. Implementations must be safe to query from the
// scheduler while the process runs.
type Process interface {
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Output returns everything written to stdout. Only meaningful once Done
	// is closed.
	Output() []byte
	// Kill forcibly terminates the process.
	Kill() error
}

// Launcher spawns processes without waiting for them.
type Launcher interface {
	Launch(argv []string, dir string) (Process, error)
}

// ExecLauncher runs checks with os/exec.
type ExecLauncher struct{}

type execProcess struct {
	cmd    *exec.Cmd
	done   chan struct{}
	mu     sync.Mutex
	stdout bytes.Buffer
}

// Launch starts argv in dir. Stderr is discarded.
func (ExecLauncher) Launch(argv []string, dir string) (Process, error) {
	p := &execProcess{done: make(chan struct{})}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &lockedWriter{p: p}
	p.cmd = cmd

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Output() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.stdout.Bytes()...)
}

func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	return p.cmd.Process.Kill()
}

type lockedWriter struct{ p *execProcess }

func (w *lockedWriter) Write(b []byte) (int, error) {
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	return w.p.stdout.Write(b)
}
