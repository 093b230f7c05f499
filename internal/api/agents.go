package api

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Command is one instruction queued for a browser agent, fetched via
// its long-poll loop.
type Command struct {
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

// Agent commands understood by the browser side.
const (
	CmdTriggerCheck = "triggerCheck"
	CmdReinject     = "reinject"
	CmdShowAlert    = "showAlert"
	CmdClearAlert   = "clearAlert"
)

const agentQueueSize = 16

type agentState struct {
	id       string
	lastSeen time.Time
	commands chan Command
}

// AgentHub tracks the browser page contexts currently reporting in and
// queues commands for them. It implements the watcher's Bridge: a
// context is reachable while its heartbeat is fresher than the TTL.
type AgentHub struct {
	mu     sync.Mutex
	agents map[string]*agentState
	ttl    time.Duration
}

func NewAgentHub(ttl time.Duration) *AgentHub {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &AgentHub{
		agents: make(map[string]*agentState),
		ttl:    ttl,
	}
}

// Heartbeat registers or refreshes an agent.
func (h *AgentHub) Heartbeat(id string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.agents[id]
	if !ok {
		a = &agentState{id: id, commands: make(chan Command, agentQueueSize)}
		h.agents[id] = a
	}
	a.lastSeen = now
}

// Contexts lists agents whose heartbeat is within the TTL. Stale agents
// are dropped as a side effect.
func (h *AgentHub) Contexts() []string {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.agents))
	for id, a := range h.agents {
		if now.Sub(a.lastSeen) > h.ttl {
			delete(h.agents, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// TriggerCheck queues a scrape request for one agent.
func (h *AgentHub) TriggerCheck(ctx context.Context, id string) error {
	return h.enqueue(ctx, id, Command{Action: CmdTriggerCheck})
}

// Reinject queues an agent re-establishment request.
func (h *AgentHub) Reinject(ctx context.Context, id string) error {
	return h.enqueue(ctx, id, Command{Action: CmdReinject})
}

func (h *AgentHub) enqueue(ctx context.Context, id string, cmd Command) error {
	h.mu.Lock()
	a, ok := h.agents[id]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("agent %s not registered", id)
	}

	select {
	case a.commands <- cmd:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("agent %s queue full: %w", id, ctx.Err())
	}
}

// Broadcast queues a command for every live agent, returning how many
// accepted it. Full queues are skipped rather than blocked on.
func (h *AgentHub) Broadcast(cmd Command) int {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for id, a := range h.agents {
		if now.Sub(a.lastSeen) > h.ttl {
			delete(h.agents, id)
			continue
		}
		select {
		case a.commands <- cmd:
			delivered++
		default:
		}
	}
	return delivered
}

// Poll returns queued commands for an agent, waiting up to wait for the
// first one. Also refreshes the agent's heartbeat.
func (h *AgentHub) Poll(ctx context.Context, id string, wait time.Duration) []Command {
	h.Heartbeat(id, time.Now())
	h.mu.Lock()
	a := h.agents[id]
	h.mu.Unlock()

	var cmds []Command
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case cmd := <-a.commands:
		cmds = append(cmds, cmd)
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}

	// Drain whatever else is already queued.
	for {
		select {
		case cmd := <-a.commands:
			cmds = append(cmds, cmd)
		default:
			return cmds
		}
	}
}
