// Package gateway is the registry that creates, binds and tears down agents
// and channels.
package gateway

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tinyclaw/gateway/internal/agent"
	"github.com/tinyclaw/gateway/internal/channel"
	"github.com/tinyclaw/gateway/internal/model"
)

// AgentFactory builds an unstarted agent of one registered type.
type AgentFactory func(id string, opts agent.Options) agent.Agent

// ChannelFactory builds an unopened channel of one registered type.
type ChannelFactory func(id, agentID string, opts channel.Options) channel.Channel

// Store mirrors registry changes to durable storage. Implementations must
// tolerate being called best-effort; persistence never fails a registry
// operation.
type Store interface {
	SaveAgent(ctx context.Context, rec model.AgentRecord) error
	DeleteAgent(ctx context.Context, id string) error
	SaveChannel(ctx context.Context, rec model.ChannelRecord) error
	DeleteChannel(ctx context.Context, id string) error
}

// agentEntry pairs a live agent with its registered type name. A nil Agent
// marks an id reserved by an in-flight create.
type agentEntry struct {
	agent    agent.Agent
	typeName string
}

type channelEntry struct {
	channel  channel.Channel
	typeName string
	agentID  string
}

// Gateway maps ids to live agents and channels. Create and remove reserve or
// drop ids under one mutex while the slow work (process spawn, teardown) runs
// outside it, so concurrent calls racing on the same id are safe by
// construction.
type Gateway struct {
	store Store // optional

	mu           sync.Mutex
	agentTypes   map[string]AgentFactory
	channelTypes map[string]ChannelFactory
	agents       map[string]*agentEntry
	channels     map[string]*channelEntry
}

// New creates an empty gateway. store may be nil.
func New(store Store) *Gateway {
	return &Gateway{
		store:        store,
		agentTypes:   make(map[string]AgentFactory),
		channelTypes: make(map[string]ChannelFactory),
		agents:       make(map[string]*agentEntry),
		channels:     make(map[string]*channelEntry),
	}
}

// RegisterAgentType registers a factory under a type name. The last
// registration for a name wins.
func (g *Gateway) RegisterAgentType(name string, factory AgentFactory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.agentTypes[name] = factory
}

// RegisterChannelType registers a factory under a type name. The last
// registration for a name wins.
func (g *Gateway) RegisterChannelType(name string, factory ChannelFactory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channelTypes[name] = factory
}

// CreateAgent constructs and starts an agent. The id is registered only once
// start succeeds; a failed start leaves no trace.
func (g *Gateway) CreateAgent(ctx context.Context, id, typeName string, opts agent.Options) (agent.Agent, error) {
	g.mu.Lock()
	if _, ok := g.agents[id]; ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("agent %q: %w", id, model.ErrAlreadyExists)
	}
	factory, ok := g.agentTypes[typeName]
	if !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("agent type %q: %w", typeName, model.ErrUnknownType)
	}
	// Reserve the id so a concurrent create on it fails fast.
	entry := &agentEntry{typeName: typeName}
	g.agents[id] = entry
	g.mu.Unlock()

	a := factory(id, opts)
	if err := a.Start(ctx); err != nil {
		g.mu.Lock()
		delete(g.agents, id)
		g.mu.Unlock()
		return nil, err
	}

	g.mu.Lock()
	entry.agent = a
	g.mu.Unlock()

	if g.store != nil {
		rec := model.AgentRecord{
			ID:      id,
			Type:    typeName,
			Shell:   a.Status().Shell,
			Workdir: opts.Workdir,
			Status:  model.AgentRecordRunning,
		}
		if err := g.store.SaveAgent(ctx, rec); err != nil {
			log.Printf("gateway: persist agent %s: %v", id, err)
		}
	}

	return a, nil
}

// CreateChannel constructs a channel, binds it to its agent, opens it, and
// registers it.
func (g *Gateway) CreateChannel(ctx context.Context, id, typeName, agentID string, opts channel.Options) (channel.Channel, error) {
	g.mu.Lock()
	if _, ok := g.channels[id]; ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("channel %q: %w", id, model.ErrAlreadyExists)
	}
	factory, ok := g.channelTypes[typeName]
	if !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("channel type %q: %w", typeName, model.ErrUnknownType)
	}
	agentEnt, ok := g.agents[agentID]
	if !ok || agentEnt.agent == nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("agent %q: %w", agentID, model.ErrNotFound)
	}
	a := agentEnt.agent
	entry := &channelEntry{typeName: typeName, agentID: agentID}
	g.channels[id] = entry
	g.mu.Unlock()

	ch := factory(id, agentID, opts)
	ch.Bind(a)
	if err := ch.Open(ctx); err != nil {
		g.mu.Lock()
		delete(g.channels, id)
		g.mu.Unlock()
		return nil, err
	}

	// The agent can be removed while Open runs outside the lock, and its
	// cascade skips this entry while it is still a reservation. Re-check
	// liveness before committing so the registry never holds a channel bound
	// to a removed agent.
	g.mu.Lock()
	agentEnt, ok = g.agents[agentID]
	if !ok || agentEnt.agent == nil {
		delete(g.channels, id)
		g.mu.Unlock()
		if cerr := ch.Close(); cerr != nil {
			log.Printf("gateway: close channel %s after losing agent %s: %v", id, agentID, cerr)
		}
		return nil, fmt.Errorf("agent %q: %w", agentID, model.ErrNotFound)
	}
	entry.channel = ch
	g.mu.Unlock()

	if g.store != nil {
		rec := model.ChannelRecord{ID: id, Type: typeName, AgentID: agentID}
		if err := g.store.SaveChannel(ctx, rec); err != nil {
			log.Printf("gateway: persist channel %s: %v", id, err)
		}
	}

	return ch, nil
}

// RemoveChannel closes and deregisters a channel. Reports whether one
// existed.
func (g *Gateway) RemoveChannel(ctx context.Context, id string) bool {
	g.mu.Lock()
	entry, ok := g.channels[id]
	if !ok || entry.channel == nil {
		g.mu.Unlock()
		return false
	}
	delete(g.channels, id)
	g.mu.Unlock()

	if err := entry.channel.Close(); err != nil {
		log.Printf("gateway: close channel %s: %v", id, err)
	}

	if g.store != nil {
		if err := g.store.DeleteChannel(ctx, id); err != nil {
			log.Printf("gateway: delete channel record %s: %v", id, err)
		}
	}

	return true
}

// RemoveAgent stops and deregisters an agent, first removing every channel
// bound to it. Reports whether the agent existed.
func (g *Gateway) RemoveAgent(ctx context.Context, id string) bool {
	g.mu.Lock()
	entry, ok := g.agents[id]
	if !ok || entry.agent == nil {
		g.mu.Unlock()
		return false
	}
	delete(g.agents, id)

	var bound []string
	for cid, ce := range g.channels {
		if ce.agentID == id {
			bound = append(bound, cid)
		}
	}
	g.mu.Unlock()

	for _, cid := range bound {
		g.RemoveChannel(ctx, cid)
	}

	if err := entry.agent.Stop(); err != nil {
		log.Printf("gateway: stop agent %s: %v", id, err)
	}

	if g.store != nil {
		if err := g.store.DeleteAgent(ctx, id); err != nil {
			log.Printf("gateway: delete agent record %s: %v", id, err)
		}
	}

	return true
}

// GetAgent returns the live agent for the id, if registered.
func (g *Gateway) GetAgent(id string) (agent.Agent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.agents[id]
	if !ok || entry.agent == nil {
		return nil, false
	}
	return entry.agent, true
}

// GetChannel returns the live channel for the id, if registered.
func (g *Gateway) GetChannel(id string) (channel.Channel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.channels[id]
	if !ok || entry.channel == nil {
		return nil, false
	}
	return entry.channel, true
}

// ListAgents returns a status snapshot of every live agent.
func (g *Gateway) ListAgents() []model.AgentStatus {
	g.mu.Lock()
	live := make([]agent.Agent, 0, len(g.agents))
	for _, entry := range g.agents {
		if entry.agent != nil {
			live = append(live, entry.agent)
		}
	}
	g.mu.Unlock()

	statuses := make([]model.AgentStatus, 0, len(live))
	for _, a := range live {
		statuses = append(statuses, a.Status())
	}
	return statuses
}

// ListChannels returns an id/agent/type snapshot of every live channel.
func (g *Gateway) ListChannels() []model.ChannelInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	infos := make([]model.ChannelInfo, 0, len(g.channels))
	for id, entry := range g.channels {
		if entry.channel == nil {
			continue
		}
		infos = append(infos, model.ChannelInfo{
			ID:      id,
			AgentID: entry.agentID,
			Type:    entry.typeName,
		})
	}
	return infos
}

// Shutdown removes every channel, then every agent.
func (g *Gateway) Shutdown(ctx context.Context) {
	for _, info := range g.ListChannels() {
		g.RemoveChannel(ctx, info.ID)
	}
	for _, status := range g.ListAgents() {
		g.RemoveAgent(ctx, status.ID)
	}
}
