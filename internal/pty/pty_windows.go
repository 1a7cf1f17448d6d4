//go:build windows

package pty

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procCreatePseudoConsole = kernel32.NewProc("CreatePseudoConsole")
	procResizePseudoConsole = kernel32.NewProc("ResizePseudoConsole")
	procClosePseudoConsole  = kernel32.NewProc("ClosePseudoConsole")
)

type conptyTerminal struct {
	hPC      windows.Handle
	readEnd  *os.File // console output -> us
	writeEnd *os.File // us -> console input
}

func (t *conptyTerminal) Read(b []byte) (int, error)  { return t.readEnd.Read(b) }
func (t *conptyTerminal) Write(b []byte) (int, error) { return t.writeEnd.Write(b) }

func (t *conptyTerminal) Close() error {
	var firstErr error
	if t.readEnd != nil {
		if err := t.readEnd.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.writeEnd != nil {
		if err := t.writeEnd.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.hPC != 0 {
		procClosePseudoConsole.Call(uintptr(t.hPC))
	}
	return firstErr
}

func (t *conptyTerminal) Resize(rows, cols uint16) error {
	size := (int32(rows) << 16) | int32(cols)
	ret, _, err := procResizePseudoConsole.Call(uintptr(t.hPC), uintptr(size))
	if ret != 0 {
		return fmt.Errorf("ResizePseudoConsole: %w", err)
	}
	return nil
}

// Supported reports whether ConPTY is available (Windows 10 1809 or later).
func Supported() error {
	if err := procCreatePseudoConsole.Find(); err != nil {
		return fmt.Errorf("ConPTY unavailable, requires Windows 10 1809 or later: %w", err)
	}
	return nil
}

type windowsProcess struct {
	handle windows.Handle
}

func (p *windowsProcess) terminate() error {
	return windows.TerminateProcess(p.handle, 1)
}

func (p *windowsProcess) wait() error {
	_, err := windows.WaitForSingleObject(p.handle, windows.INFINITE)
	windows.CloseHandle(p.handle)
	return err
}

// Spawn starts a process attached to a Windows pseudo console. The console
// handle must travel to the child as a proc-thread attribute; a child created
// without it never binds to the console's pipes.
func Spawn(opts SpawnOptions) (*Process, error) {
	if err := Supported(); err != nil {
		return nil, err
	}

	var outRead, outWrite, inRead, inWrite windows.Handle
	if err := windows.CreatePipe(&outRead, &outWrite, nil, 0); err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	if err := windows.CreatePipe(&inRead, &inWrite, nil, 0); err != nil {
		windows.CloseHandle(outRead)
		windows.CloseHandle(outWrite)
		return nil, fmt.Errorf("create input pipe: %w", err)
	}

	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}
	size := (int32(rows) << 16) | int32(cols)

	var hPC windows.Handle
	ret, _, err := procCreatePseudoConsole.Call(
		uintptr(size),
		uintptr(inRead),
		uintptr(outWrite),
		0,
		uintptr(unsafe.Pointer(&hPC)),
	)
	if ret != 0 {
		windows.CloseHandle(outRead)
		windows.CloseHandle(outWrite)
		windows.CloseHandle(inRead)
		windows.CloseHandle(inWrite)
		return nil, fmt.Errorf("CreatePseudoConsole: %w", err)
	}

	// These ends now belong to the console.
	windows.CloseHandle(inRead)
	windows.CloseHandle(outWrite)

	cleanup := func() {
		procClosePseudoConsole.Call(uintptr(hPC))
		windows.CloseHandle(outRead)
		windows.CloseHandle(inWrite)
	}

	attrs, err := windows.NewProcThreadAttributeList(1)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create attribute list: %w", err)
	}
	defer attrs.Delete()
	if err := attrs.Update(windows.PROC_THREAD_ATTRIBUTE_PSEUDOCONSOLE,
		unsafe.Pointer(hPC), unsafe.Sizeof(hPC)); err != nil {
		cleanup()
		return nil, fmt.Errorf("attach pseudo console: %w", err)
	}

	cmdline, err := windows.UTF16PtrFromString(
		windows.ComposeCommandLine(append([]string{opts.Command}, opts.Args...)))
	if err != nil {
		cleanup()
		return nil, err
	}
	var dir *uint16
	if opts.Dir != "" {
		if dir, err = windows.UTF16PtrFromString(opts.Dir); err != nil {
			cleanup()
			return nil, err
		}
	}

	siEx := new(windows.StartupInfoEx)
	siEx.Cb = uint32(unsafe.Sizeof(*siEx))
	siEx.ProcThreadAttributeList = attrs.List()

	var pi windows.ProcessInformation
	err = windows.CreateProcess(nil, cmdline, nil, nil, false,
		windows.EXTENDED_STARTUPINFO_PRESENT|windows.CREATE_UNICODE_ENVIRONMENT,
		nil, dir, &siEx.StartupInfo, &pi)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("CreateProcess: %w", err)
	}
	windows.CloseHandle(pi.Thread)

	return &Process{
		Terminal: &conptyTerminal{
			hPC:      hPC,
			readEnd:  os.NewFile(uintptr(outRead), "conpty-out"),
			writeEnd: os.NewFile(uintptr(inWrite), "conpty-in"),
		},
		proc: &windowsProcess{handle: pi.Process},
		pid:  int(pi.ProcessId),
	}, nil
}
