package api

import (
	"context"
	"fmt"

	"github.com/mkarvonen/orderwatch/internal/alert"
)

// AgentRenderer presents alerts by pushing showAlert commands to every
// live browser agent.
type AgentRenderer struct {
	hub *AgentHub
}

func NewAgentRenderer(hub *AgentHub) *AgentRenderer {
	return &AgentRenderer{hub: hub}
}

func (r *AgentRenderer) Present(ctx context.Context, a alert.Alert) error {
	if delivered := r.hub.Broadcast(Command{Action: CmdShowAlert, Data: a}); delivered == 0 {
		return fmt.Errorf("no visible page context accepted alert %s", a.ID)
	}
	return nil
}

func (r *AgentRenderer) Clear(ctx context.Context, alertID string) error {
	r.hub.Broadcast(Command{Action: CmdClearAlert, Data: map[string]string{"id": alertID}})
	return nil
}
