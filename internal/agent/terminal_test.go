//go:build !windows

package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tinyclaw/gateway/internal/model"
)

// readUntil drains agent output until the accumulated text contains want or
// the timeout expires.
func readUntil(t *testing.T, a Agent, want string, timeout time.Duration) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var sb strings.Builder
	for !strings.Contains(sb.String(), want) {
		chunk, err := a.ReadOutput(ctx)
		if err != nil {
			t.Fatalf("did not see %q in output, got %q: %v", want, sb.String(), err)
		}
		sb.Write(chunk)
	}
	return sb.String()
}

func TestTerminalAgent_OutputAndExitSentinel(t *testing.T) {
	a := NewTerminal("test", Options{Shell: "echo hello"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	out := readUntil(t, a, exitSentinel, 5*time.Second)
	if !strings.Contains(out, "hello") {
		t.Errorf("expected process output before sentinel, got %q", out)
	}
	if !strings.HasSuffix(out, exitSentinel) {
		t.Errorf("expected output to end with exit sentinel, got %q", out)
	}
}

func TestTerminalAgent_SendInputEchoes(t *testing.T) {
	a := NewTerminal("test", Options{Shell: "cat"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	if err := a.SendInput([]byte("ping\n")); err != nil {
		t.Fatalf("send input: %v", err)
	}
	readUntil(t, a, "ping", 5*time.Second)
}

func TestTerminalAgent_StartIdempotent(t *testing.T) {
	a := NewTerminal("test", Options{Shell: "cat"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	pid := a.Status().PID
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if got := a.Status().PID; got == nil || pid == nil || *got != *pid {
		t.Error("second start must not respawn the process")
	}
}

func TestTerminalAgent_StopIsQuietAndIdempotent(t *testing.T) {
	a := NewTerminal("test", Options{Shell: "cat"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := a.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	// A requested stop must not announce the exit as output.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	for {
		chunk, err := a.ReadOutput(ctx)
		if err != nil {
			break
		}
		if strings.Contains(string(chunk), exitSentinel) {
			t.Fatal("stop produced the exit sentinel")
		}
	}

	if err := a.SendInput([]byte("x")); !errors.Is(err, model.ErrProcessExited) {
		t.Errorf("expected ErrProcessExited after stop, got %v", err)
	}
}

func TestTerminalAgent_SpawnFailure(t *testing.T) {
	a := NewTerminal("test", Options{Shell: "no-such-command-zqx"})
	err := a.Start(context.Background())
	if !errors.Is(err, model.ErrProcessSpawnFailed) {
		t.Fatalf("expected ErrProcessSpawnFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected a not-found hint in %q", err)
	}
}

func TestTerminalAgent_InputAfterExit(t *testing.T) {
	a := NewTerminal("test", Options{Shell: "true"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	readUntil(t, a, exitSentinel, 5*time.Second)

	if err := a.SendInput([]byte("x")); !errors.Is(err, model.ErrProcessExited) {
		t.Errorf("expected ErrProcessExited, got %v", err)
	}
}

func TestTerminalAgent_Status(t *testing.T) {
	a := NewTerminal("status-agent", Options{Shell: "cat"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	status := a.Status()
	if status.ID != "status-agent" {
		t.Errorf("id: got %q", status.ID)
	}
	if status.Type != TypeTerminal {
		t.Errorf("type: got %q", status.Type)
	}
	if status.Shell != "cat" {
		t.Errorf("shell: got %q", status.Shell)
	}
	if !status.Running {
		t.Error("expected running")
	}
	if status.Mode != model.BackendPipe {
		t.Errorf("mode: got %q", status.Mode)
	}
	if status.PID == nil || *status.PID <= 0 {
		t.Errorf("expected a positive pid, got %v", status.PID)
	}
}

func TestTerminalAgent_ResizeUnsupportedOnPipe(t *testing.T) {
	a := NewTerminal("test", Options{Shell: "cat"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	if err := a.Resize(40, 120); !errors.Is(err, model.ErrResizeUnsupported) {
		t.Errorf("expected ErrResizeUnsupported, got %v", err)
	}
}

func TestTerminalAgent_DefaultShell(t *testing.T) {
	a := NewTerminal("test", Options{})
	if a.shell != "bash" {
		t.Errorf("expected bash default on this platform, got %q", a.shell)
	}
}

func TestTerminalAgent_ShellWithArguments(t *testing.T) {
	a := NewTerminal("test", Options{Shell: `echo "two words"`})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	readUntil(t, a, "two words", 5*time.Second)
}
