// Package agent wraps interactive OS processes and presents each one as an
// asynchronous byte-stream pair with lifecycle control.
package agent

import (
	"context"

	"github.com/tinyclaw/gateway/internal/model"
)

// Agent manages one interactive process. An agent owns at most one process
// for its lifetime: once stopped it is discarded, never restarted.
type Agent interface {
	// ID returns the registry id of the agent.
	ID() string

	// Start resolves and spawns the underlying process and launches the
	// background reader loop. Calling Start on a started agent is a no-op.
	// Returns model.ErrProcessSpawnFailed when the executable or a required
	// backend prerequisite is missing.
	Start(ctx context.Context) error

	// Stop terminates the process and releases all resources. Safe to call
	// on an already-stopped agent.
	Stop() error

	// SendInput writes data to the process's stdin. Returns
	// model.ErrProcessExited if the process has terminated and
	// model.ErrConnectionLost if the write itself fails.
	SendInput(data []byte) error

	// ReadOutput blocks until the next output chunk is available. Chunks are
	// returned strictly in production order.
	ReadOutput(ctx context.Context) ([]byte, error)

	// Status returns a point-in-time snapshot of the agent.
	Status() model.AgentStatus

	// Resize changes the terminal window size on backends that have one.
	Resize(rows, cols uint16) error
}

// Options configures a new terminal agent.
type Options struct {
	// Shell is the command line to run, e.g. "bash" or "bash -l". Empty
	// selects the platform default shell.
	Shell string

	// Workdir is the working directory for the process.
	Workdir string

	// LogDir, when set, enables asciinema transcript recording under this
	// directory.
	LogDir string
}
