// Package pty spawns processes behind a pseudo-terminal and exposes the
// master side as a combined byte stream.
package pty

import (
	"io"
)

// Terminal is the platform-independent view of a pseudo-terminal master.
type Terminal interface {
	io.Reader
	io.Writer
	io.Closer

	// Resize changes the terminal window size.
	Resize(rows, cols uint16) error
}

// SpawnOptions configures a pseudo-terminal process.
type SpawnOptions struct {
	// Command is the resolved executable path.
	Command string

	// Args are the command arguments.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Rows and Cols set the initial window size; zero values default to 24x80.
	Rows uint16
	Cols uint16
}

// Process is a running process attached to a pseudo-terminal. The process's
// stdin, stdout and stderr are all wired to the terminal, so Terminal carries
// a single combined stream.
type Process struct {
	Terminal Terminal

	proc processHandle
	pid  int
}

// processHandle is the platform-specific process control surface behind a
// Process.
type processHandle interface {
	terminate() error
	wait() error
}

// PID returns the process id.
func (p *Process) PID() int {
	return p.pid
}

// Terminate asks the process to exit.
func (p *Process) Terminate() error {
	return p.proc.terminate()
}

// Wait blocks until the process exits.
func (p *Process) Wait() error {
	return p.proc.wait()
}

// Close releases the terminal. The process is not waited for.
func (p *Process) Close() error {
	return p.Terminal.Close()
}
