package model

import "errors"

var (
	// ErrAlreadyExists is returned when an agent or channel id is already registered.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnknownType is returned when no factory is registered for a type name.
	ErrUnknownType = errors.New("unknown type")

	// ErrNotFound is returned when an agent or channel id is not registered.
	ErrNotFound = errors.New("not found")

	// ErrProcessSpawnFailed is returned by Agent.Start when the shell executable
	// is missing or a required backend prerequisite is unavailable.
	ErrProcessSpawnFailed = errors.New("process spawn failed")

	// ErrProcessExited is returned by Agent.SendInput when the underlying
	// process has already terminated.
	ErrProcessExited = errors.New("agent process already exited")

	// ErrConnectionLost is returned by Agent.SendInput when the write to the
	// process itself fails (broken pipe, reset, backend I/O error).
	ErrConnectionLost = errors.New("agent process connection lost")

	// ErrResizeUnsupported is returned when resizing an agent whose backend
	// has no terminal window to resize.
	ErrResizeUnsupported = errors.New("resize not supported by agent backend")
)
