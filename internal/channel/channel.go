// Package channel bridges one agent's byte stream to at most one attached
// remote transport, preserving replayable history across reconnects.
package channel

import (
	"context"
	"errors"

	"github.com/tinyclaw/gateway/internal/agent"
)

// ErrTransportClosed signals an ordinary client disconnect, as opposed to a
// transport failure. Transports must return it (or wrap it) from ReceiveText
// when the peer goes away normally.
var ErrTransportClosed = errors.New("transport closed")

// Close codes sent to displaced or misaddressed transports.
const (
	CloseNormal          = 1000
	CloseReplaced        = 4000
	CloseChannelNotFound = 4004
)

// ReasonReplaced is the close reason a transport receives when a newer
// connection takes its place.
const ReasonReplaced = "replaced by new connection"

// Transport is the external duplex connection a channel serves. Exactly zero
// or one transport is attached to a channel at any instant.
type Transport interface {
	// Accept completes the connection handshake.
	Accept() error

	// Send delivers text to the client.
	Send(text string) error

	// ReceiveText blocks until the next client message arrives. Ordinary
	// disconnect is reported as ErrTransportClosed.
	ReceiveText() (string, error)

	// Close shuts the connection with a status code and reason.
	Close(code int, reason string) error
}

// Channel is a duplex bridge between one bound agent and a rotating set of
// transports.
type Channel interface {
	// ID returns the registry id of the channel.
	ID() string

	// AgentID returns the id of the bound agent. Immutable once bound.
	AgentID() string

	// Bind attaches the channel to its agent.
	Bind(a agent.Agent)

	// Open starts the background pump loop. Idempotent.
	Open(ctx context.Context) error

	// Close stops the pump loop and detaches any transport.
	Close() error

	// OnClientData forwards client bytes to the bound agent. Failures are
	// surfaced to the attached transport as an inline notice, never
	// propagated: a broken agent must not tear down the channel.
	OnClientData(data []byte)

	// OnAgentData buffers agent output into history and forwards it to the
	// attached transport, if any.
	OnAgentData(data []byte)
}
