package agent

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tinyclaw/gateway/internal/model"
	"github.com/tinyclaw/gateway/internal/pty"
)

// backend is the process I/O mechanism behind a terminal agent. The two
// variants (raw pipe, pseudo-terminal) implement the same capability set so
// the choice stays a single factory decision in selectBackend.
type backend interface {
	mode() model.BackendMode
	read(p []byte) (int, error)
	write(p []byte) (int, error)
	alive() bool
	exitCode() (int, bool)
	pid() (int, bool)
	resize(rows, cols uint16) error

	// stop terminates the process and releases its handles according to the
	// variant's shutdown protocol. Idempotent.
	stop() error
}

// selectBackend decides which process backend to use for the given shell.
// The raw pipe backend is the default; the pseudo-terminal backend is used on
// Windows, which has no pipe-based TTY emulation. Shells that strictly need
// terminal semantics fail outright when the pty prerequisite is missing.
func selectBackend(shell string) (model.BackendMode, error) {
	if runtime.GOOS != "windows" {
		return model.BackendPipe, nil
	}
	if err := pty.Supported(); err != nil {
		if requiresTerminal(shell) {
			return "", fmt.Errorf("%w: shell %q requires a pseudo-terminal: %v",
				model.ErrProcessSpawnFailed, shell, err)
		}
		return model.BackendPipe, nil
	}
	return model.BackendPTY, nil
}

// requiresTerminal reports whether the shell is known to refuse pipe I/O.
func requiresTerminal(shell string) bool {
	return strings.Contains(strings.ToLower(shell), "codex")
}

// ptyArgv wraps .cmd/.bat targets through the command interpreter, which the
// pseudo console cannot launch directly.
func ptyArgv(resolved string, args []string) (string, []string) {
	ext := strings.ToLower(filepath.Ext(resolved))
	if ext == ".cmd" || ext == ".bat" {
		return "cmd.exe", append([]string{"/c", resolved}, args...)
	}
	return resolved, args
}
