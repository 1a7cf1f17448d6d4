// Package model defines the shared data types and error taxonomy for the
// terminal-session gateway.
package model

import "time"

// BackendMode identifies the process I/O mechanism an agent uses.
type BackendMode string

const (
	// BackendPipe is the raw bidirectional pipe backend (stderr merged into stdout).
	BackendPipe BackendMode = "pipe"

	// BackendPTY is the pseudo-terminal backend (single combined stream).
	BackendPTY BackendMode = "pty"
)

// AgentStatus is a point-in-time snapshot of a live agent.
type AgentStatus struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Shell   string      `json:"shell"`
	Running bool        `json:"running"`
	PID     *int        `json:"pid,omitempty"`
	Mode    BackendMode `json:"mode"`
}

// ChannelInfo is a registry snapshot of a live channel.
type ChannelInfo struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
	Type    string `json:"type"`
}

// AgentRecord is the persisted form of an agent registration.
type AgentRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Shell     string    `json:"shell"`
	Workdir   string    `json:"workdir,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChannelRecord is the persisted form of a channel registration.
type ChannelRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Agent record statuses stored in the registry database.
const (
	AgentRecordRunning = "running"
	AgentRecordRemoved = "removed"
)
