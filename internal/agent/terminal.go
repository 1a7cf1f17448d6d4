package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/kballard/go-shellquote"

	"github.com/tinyclaw/gateway/internal/buffer"
	"github.com/tinyclaw/gateway/internal/logger"
	"github.com/tinyclaw/gateway/internal/model"
)

// TypeTerminal is the registry type name for terminal agents.
const TypeTerminal = "terminal"

// readChunkSize is the maximum bytes read from the process per chunk.
const readChunkSize = 1024

// exitSentinel is pushed as the final output chunk when the process's output
// stream ends.
const exitSentinel = "\n[agent exited]\n"

// TerminalAgent runs an interactive shell and exposes its I/O as ordered
// byte chunks through an unbounded queue, so a slow consumer never stalls
// the process.
type TerminalAgent struct {
	id      string
	shell   string
	workdir string
	logDir  string

	queue *buffer.ChunkQueue

	mu         sync.Mutex
	backend    backend
	backMode   model.BackendMode
	transcript *logger.Transcript
	cancel     context.CancelFunc
	readerDone chan struct{}
	started    bool
	stopped    bool
}

// NewTerminal creates an unstarted terminal agent. An empty shell selects the
// platform default.
func NewTerminal(id string, opts Options) *TerminalAgent {
	shell := opts.Shell
	if shell == "" {
		if runtime.GOOS == "windows" {
			shell = "powershell"
		} else {
			shell = "bash"
		}
	}
	return &TerminalAgent{
		id:       id,
		shell:    shell,
		workdir:  opts.Workdir,
		logDir:   opts.LogDir,
		queue:    buffer.NewChunkQueue(),
		backMode: model.BackendPipe,
	}
}

// ID returns the agent's registry id.
func (a *TerminalAgent) ID() string { return a.id }

// Start spawns the shell process and launches the reader loop. A second call
// on a started agent is a no-op.
func (a *TerminalAgent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	argv, err := shellquote.Split(a.shell)
	if err != nil || len(argv) == 0 {
		return fmt.Errorf("%w: invalid shell command %q", model.ErrProcessSpawnFailed, a.shell)
	}
	resolved := resolveExecutable(argv[0])
	args := argv[1:]

	mode, err := selectBackend(a.shell)
	if err != nil {
		return err
	}

	var b backend
	switch mode {
	case model.BackendPTY:
		b, err = startPTY(resolved, args, a.workdir)
	default:
		b, err = startPipe(resolved, args, a.workdir)
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			return fmt.Errorf("%w: shell command not found: %s (check PATH or use an absolute path)",
				model.ErrProcessSpawnFailed, a.shell)
		}
		return fmt.Errorf("%w: %v", model.ErrProcessSpawnFailed, err)
	}

	if a.logDir != "" {
		path := filepath.Join(a.logDir, a.id+".cast")
		transcript, terr := logger.NewTranscript(path, 80, 24)
		if terr != nil {
			log.Printf("agent %s: transcript disabled: %v", a.id, terr)
		} else {
			a.transcript = transcript
		}
	}

	readerCtx, cancel := context.WithCancel(context.Background())
	a.backend = b
	a.backMode = b.mode()
	a.cancel = cancel
	a.readerDone = make(chan struct{})
	a.started = true

	go a.readLoop(readerCtx, b)

	return nil
}

// Stop cancels the reader loop, terminates the process and releases all
// handles. Safe to call repeatedly and on a never-started agent.
func (a *TerminalAgent) Stop() error {
	a.mu.Lock()
	if !a.started || a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	b := a.backend
	cancel := a.cancel
	done := a.readerDone
	transcript := a.transcript
	a.backend = nil
	a.transcript = nil
	a.mu.Unlock()

	cancel()
	b.stop()
	<-done

	if transcript != nil {
		transcript.Close()
	}
	return nil
}

// SendInput writes data to the process's input stream.
func (a *TerminalAgent) SendInput(data []byte) error {
	a.mu.Lock()
	b := a.backend
	transcript := a.transcript
	a.mu.Unlock()

	if b == nil {
		return model.ErrProcessExited
	}
	if !b.alive() {
		if code, ok := b.exitCode(); ok {
			return fmt.Errorf("%w (code=%d)", model.ErrProcessExited, code)
		}
		return model.ErrProcessExited
	}

	if _, err := b.write(data); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConnectionLost, err)
	}
	if transcript != nil {
		transcript.Input(data)
	}
	return nil
}

// ReadOutput blocks until the next output chunk is available and returns
// chunks strictly in production order.
func (a *TerminalAgent) ReadOutput(ctx context.Context) ([]byte, error) {
	return a.queue.Pop(ctx)
}

// Status reports the agent's current state.
func (a *TerminalAgent) Status() model.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	status := model.AgentStatus{
		ID:    a.id,
		Type:  TypeTerminal,
		Shell: a.shell,
		Mode:  a.backMode,
	}
	if a.backend != nil {
		status.Running = a.backend.alive()
		if pid, ok := a.backend.pid(); ok {
			status.PID = &pid
		}
	}
	return status
}

// Resize changes the terminal window size. Pipe-backed agents have no
// terminal and report model.ErrResizeUnsupported.
func (a *TerminalAgent) Resize(rows, cols uint16) error {
	a.mu.Lock()
	b := a.backend
	a.mu.Unlock()

	if b == nil {
		return model.ErrProcessExited
	}
	return b.resize(rows, cols)
}

// readLoop drains process output into the queue until the stream ends, then
// pushes the exit sentinel. Stop cancels the context first, so shutdown does
// not produce a sentinel.
func (a *TerminalAgent) readLoop(ctx context.Context, b backend) {
	defer close(a.readerDone)

	buf := make([]byte, readChunkSize)
	for {
		n, err := b.read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			a.mu.Lock()
			transcript := a.transcript
			a.mu.Unlock()
			if transcript != nil {
				transcript.Output(chunk)
			}

			a.queue.Push(chunk)
		}
		if err != nil {
			// End of stream and read errors are treated identically: the
			// process is gone, announce it once and stop for good.
			if ctx.Err() == nil {
				a.queue.Push([]byte(exitSentinel))
			}
			return
		}
	}
}

// resolveExecutable looks the name up on PATH, falling back to the literal
// value so absolute and relative paths keep working.
func resolveExecutable(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return name
}
