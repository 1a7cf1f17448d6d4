package agent

import (
	"sync"

	"github.com/tinyclaw/gateway/internal/model"
	"github.com/tinyclaw/gateway/internal/pty"
)

// ptyBackend runs the process behind a pseudo-terminal with a single combined
// I/O stream.
type ptyBackend struct {
	proc *pty.Process
	done chan struct{}

	mu      sync.Mutex
	stopped bool
}

func startPTY(resolved string, args []string, workdir string) (*ptyBackend, error) {
	command, argv := ptyArgv(resolved, args)
	proc, err := pty.Spawn(pty.SpawnOptions{
		Command: command,
		Args:    argv,
		Dir:     workdir,
	})
	if err != nil {
		return nil, err
	}

	b := &ptyBackend{
		proc: proc,
		done: make(chan struct{}),
	}

	go func() {
		proc.Wait()
		close(b.done)
	}()

	return b, nil
}

func (b *ptyBackend) mode() model.BackendMode { return model.BackendPTY }

func (b *ptyBackend) read(p []byte) (int, error)  { return b.proc.Terminal.Read(p) }
func (b *ptyBackend) write(p []byte) (int, error) { return b.proc.Terminal.Write(p) }

func (b *ptyBackend) alive() bool {
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

func (b *ptyBackend) exitCode() (int, bool) {
	// The pseudo console does not surface a reliable exit code.
	return 0, false
}

func (b *ptyBackend) pid() (int, bool) {
	// Process id is reported for the pipe backend only.
	return 0, false
}

func (b *ptyBackend) resize(rows, cols uint16) error {
	return b.proc.Terminal.Resize(rows, cols)
}

// stop terminates the process and closes the terminal handle, swallowing
// errors from both steps.
func (b *ptyBackend) stop() error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	b.mu.Unlock()

	b.proc.Terminate()
	b.proc.Close()
	return nil
}
