//go:build !windows

package pty

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

type unixTerminal struct {
	master *os.File
}

func (t *unixTerminal) Read(b []byte) (int, error)  { return t.master.Read(b) }
func (t *unixTerminal) Write(b []byte) (int, error) { return t.master.Write(b) }
func (t *unixTerminal) Close() error                { return t.master.Close() }

func (t *unixTerminal) Resize(rows, cols uint16) error {
	ws := &unix.Winsize{Row: rows, Col: cols}
	return unix.IoctlSetWinsize(int(t.master.Fd()), unix.TIOCSWINSZ, ws)
}

// Spawn starts a process on a fresh pty pair. The child gets the slave as its
// controlling terminal; the parent keeps the master.
func Spawn(opts SpawnOptions) (*Process, error) {
	master, slave, err := openPair()
	if err != nil {
		return nil, err
	}

	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}
	ws := &unix.Winsize{Row: rows, Col: cols}
	if err := unix.IoctlSetWinsize(int(master.Fd()), unix.TIOCSWINSZ, ws); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("set window size: %w", err)
	}

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Env = os.Environ()
	cmd.Dir = opts.Dir
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		master.Close()
		slave.Close()
		return nil, err
	}

	// The child holds its own copy of the slave.
	slave.Close()

	return &Process{
		Terminal: &unixTerminal{master: master},
		proc:     &unixProcess{cmd: cmd},
		pid:      cmd.Process.Pid,
	}, nil
}

type unixProcess struct {
	cmd *exec.Cmd
}

func (p *unixProcess) terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func (p *unixProcess) wait() error { return p.cmd.Wait() }

func openPair() (master, slave *os.File, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open /dev/ptmx: %w", err)
	}

	name, err := slaveName(master)
	if err != nil {
		master.Close()
		return nil, nil, fmt.Errorf("ptsname: %w", err)
	}

	if err := unlock(master); err != nil {
		master.Close()
		return nil, nil, fmt.Errorf("unlockpt: %w", err)
	}

	slave, err = os.OpenFile(name, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		master.Close()
		return nil, nil, fmt.Errorf("open slave pty: %w", err)
	}

	return master, slave, nil
}

func slaveName(master *os.File) (string, error) {
	var n uint32
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, master.Fd(), syscall.TIOCGPTN, uintptr(unsafe.Pointer(&n)))
	if errno != 0 {
		return "", errno
	}
	return fmt.Sprintf("/dev/pts/%d", n), nil
}

func unlock(master *os.File) error {
	var zero int32
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, master.Fd(), syscall.TIOCSPTLCK, uintptr(unsafe.Pointer(&zero)))
	if errno != 0 {
		return errno
	}
	return nil
}

// Supported reports whether this platform can provide a pseudo-terminal.
// Always true on unix systems.
func Supported() error {
	return nil
}
