package channel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tinyclaw/gateway/internal/agent"
	"github.com/tinyclaw/gateway/internal/buffer"
)

// TypeWebTerminal is the registry type name for web terminal channels.
const TypeWebTerminal = "web_terminal"

// unboundPollDelay is how long the pump loop sleeps between checks while no
// agent is bound yet.
const unboundPollDelay = 100 * time.Millisecond

// Options configures a new web terminal channel.
type Options struct {
	// HistoryLimit caps the replay buffer in bytes. Zero selects
	// buffer.DefaultHistoryLimit.
	HistoryLimit int
}

// WebTerminal bridges one agent to at most one attached transport. Output is
// buffered into a bounded history ring and replayed whenever a transport
// (re)attaches; attaching a new transport always displaces the previous one.
type WebTerminal struct {
	id      string
	agentID string
	history *buffer.History

	mu        sync.Mutex
	agent     agent.Agent
	transport Transport
	cancel    context.CancelFunc
	pumpDone  chan struct{}
	opened    bool
}

// NewWebTerminal creates an unopened channel for the given agent id.
func NewWebTerminal(id, agentID string, opts Options) *WebTerminal {
	return &WebTerminal{
		id:      id,
		agentID: agentID,
		history: buffer.NewHistory(opts.HistoryLimit),
	}
}

// ID returns the channel's registry id.
func (c *WebTerminal) ID() string { return c.id }

// AgentID returns the bound agent's id.
func (c *WebTerminal) AgentID() string { return c.agentID }

// Bind attaches the channel to its agent.
func (c *WebTerminal) Bind(a agent.Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agent = a
}

// Open starts the pump loop if it is not already running.
func (c *WebTerminal) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return nil
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.pumpDone = make(chan struct{})
	c.opened = true

	go c.pump(pumpCtx)

	return nil
}

// Close cancels the pump loop and closes the attached transport, if any.
func (c *WebTerminal) Close() error {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return nil
	}
	c.opened = false
	cancel := c.cancel
	done := c.pumpDone
	t := c.transport
	c.transport = nil
	c.mu.Unlock()

	cancel()
	<-done

	if t != nil {
		t.Close(CloseNormal, "channel closed")
	}
	return nil
}

// OnClientData forwards client bytes to the bound agent's input. On failure
// an inline notice is written to the attached transport instead of
// propagating the error.
func (c *WebTerminal) OnClientData(data []byte) {
	c.mu.Lock()
	a := c.agent
	c.mu.Unlock()

	if a == nil {
		return
	}
	if err := a.SendInput(data); err != nil {
		c.mu.Lock()
		t := c.transport
		c.mu.Unlock()
		if t != nil {
			t.Send("\n[channel error] " + err.Error() + "\n")
		}
	}
}

// OnAgentData appends output to the history buffer (with capability-probe
// echoes stripped) and forwards the original text to the attached transport.
func (c *WebTerminal) OnAgentData(data []byte) {
	text := string(data)
	c.history.Append(stripProbeEchoes(text))

	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t != nil {
		t.Send(text)
	}
}

// History returns the current replay buffer contents.
func (c *WebTerminal) History() string {
	return c.history.Snapshot()
}

// HandleTransport serves one transport connection: it displaces any previous
// transport, replays history, then forwards client messages until the client
// disconnects. The channel outlives the connection and can be reattached.
func (c *WebTerminal) HandleTransport(t Transport) error {
	if err := t.Accept(); err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.transport
	c.transport = t
	c.mu.Unlock()

	if prev != nil && prev != t {
		prev.Close(CloseReplaced, ReasonReplaced)
	}

	if h := c.history.Snapshot(); h != "" {
		t.Send(h)
	}

	for {
		msg, err := t.ReceiveText()
		if err != nil {
			if !errors.Is(err, ErrTransportClosed) {
				// Best effort; the transport is likely already broken.
				t.Send("\n[channel fatal] " + err.Error() + "\n")
			}
			break
		}
		c.OnClientData([]byte(msg))
	}

	// Detach only if this transport is still the attached one, so a
	// replacement attached mid-unwind is not clobbered.
	c.mu.Lock()
	if c.transport == t {
		c.transport = nil
	}
	c.mu.Unlock()

	return nil
}

// pump drains the bound agent's output into OnAgentData until Close cancels
// it. While no agent is bound it polls instead of busy-spinning.
func (c *WebTerminal) pump(ctx context.Context) {
	defer close(c.pumpDone)

	for {
		c.mu.Lock()
		a := c.agent
		c.mu.Unlock()

		if a == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(unboundPollDelay):
			}
			continue
		}

		data, err := a.ReadOutput(ctx)
		if err != nil {
			return
		}
		c.OnAgentData(data)
	}
}

// stripProbeEchoes drops the two known primary-device-attributes response
// echoes from text destined for the history buffer. ANSI sequences are
// otherwise kept for replay fidelity.
func stripProbeEchoes(text string) string {
	text = strings.ReplaceAll(text, "\x1b[?1;2c", "")
	return strings.ReplaceAll(text, "[?1;2c", "")
}
