package agent

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/tinyclaw/gateway/internal/model"
)

// stopGrace is how long a pipe-backed process gets to exit after SIGTERM
// before it is force-killed.
const stopGrace = 2 * time.Second

// pipeBackend runs the process with a plain stdin pipe and a combined
// stdout+stderr pipe.
type pipeBackend struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *os.File

	done chan struct{}

	mu      sync.Mutex
	code    int
	exited  bool
	stopped bool
}

func startPipe(resolved string, args []string, workdir string) (*pipeBackend, error) {
	cmd := exec.Command(resolved, args...)
	cmd.Dir = workdir
	cmd.Env = os.Environ()

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	stdin, err := cmd.StdinPipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		stdin.Close()
		return nil, err
	}

	// Drop the parent's copy of the write end so reads see EOF once the
	// child exits.
	outW.Close()

	b := &pipeBackend{
		cmd:   cmd,
		stdin: stdin,
		out:   outR,
		done:  make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		b.mu.Lock()
		b.exited = true
		if exitErr, ok := err.(*exec.ExitError); ok {
			b.code = exitErr.ExitCode()
		} else if err == nil {
			b.code = 0
		} else {
			b.code = -1
		}
		b.mu.Unlock()
		close(b.done)
	}()

	return b, nil
}

func (b *pipeBackend) mode() model.BackendMode { return model.BackendPipe }

func (b *pipeBackend) read(p []byte) (int, error)  { return b.out.Read(p) }
func (b *pipeBackend) write(p []byte) (int, error) { return b.stdin.Write(p) }

func (b *pipeBackend) alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.exited
}

func (b *pipeBackend) exitCode() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code, b.exited
}

func (b *pipeBackend) pid() (int, bool) {
	if b.cmd.Process == nil {
		return 0, false
	}
	return b.cmd.Process.Pid, true
}

func (b *pipeBackend) resize(rows, cols uint16) error {
	return model.ErrResizeUnsupported
}

// stop terminates the process, waiting up to stopGrace after SIGTERM before
// force-killing, then releases the pipe handles.
func (b *pipeBackend) stop() error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	exited := b.exited
	b.mu.Unlock()

	if !exited && b.cmd.Process != nil {
		b.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-b.done:
		case <-time.After(stopGrace):
			b.cmd.Process.Kill()
			<-b.done
		}
	}

	b.stdin.Close()
	b.out.Close()
	return nil
}
