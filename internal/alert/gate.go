// Package alert delivers notification events to the presentation
// collaborators. The gate guarantees at most one active presentation;
// rendering failures never feed back into order counts.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Alert is one presentation request derived from a notification event.
type Alert struct {
	ID           string        `json:"id"`
	Channel      string        `json:"channel"`
	TotalPending int           `json:"totalPending"`
	NewCount     int           `json:"newCount"`
	Duration     time.Duration `json:"-"`
	FiredAt      int64         `json:"firedAt"`
}

// Renderer presents alerts to the outside world. Implementations exist
// for the browser agent command channel and for an AMQP fanout.
type Renderer interface {
	Present(ctx context.Context, a Alert) error
	Clear(ctx context.Context, alertID string) error
}

// Gate ensures at most one alert presentation is active at a time.
// Dispatching a new alert tears down the current one first, so
// back-to-back notification events never stack.
type Gate struct {
	mu       sync.Mutex
	renderer Renderer
	logger   *slog.Logger

	activeID     string
	dismissTimer *time.Timer
}

func NewGate(renderer Renderer, logger *slog.Logger) *Gate {
	return &Gate{renderer: renderer, logger: logger}
}

// Dispatch presents an alert, replacing any active one. Fire and
// forget: a renderer failure is logged and the alert is still counted
// as delivered, which keeps a persistently broken renderer from causing
// redelivery loops.
func (g *Gate) Dispatch(ctx context.Context, a Alert) {
	g.mu.Lock()
	g.teardownLocked(ctx)
	g.activeID = a.ID
	if a.Duration > 0 {
		id := a.ID
		g.dismissTimer = time.AfterFunc(a.Duration, func() {
			g.dismiss(id)
		})
	}
	g.mu.Unlock()

	if err := g.renderer.Present(ctx, a); err != nil {
		g.logger.Warn("alert presentation failed",
			"alert_id", a.ID,
			"channel", a.Channel,
			"error", err)
	}
}

// Teardown clears any active presentation. Idempotent when nothing is
// active.
func (g *Gate) Teardown(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.teardownLocked(ctx)
}

// dismiss is the auto-dismiss path; it only clears the alert it was
// armed for, so a newer alert is never torn down by a stale timer.
func (g *Gate) dismiss(alertID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.activeID != alertID {
		return
	}
	g.teardownLocked(context.Background())
}

func (g *Gate) teardownLocked(ctx context.Context) {
	if g.dismissTimer != nil {
		g.dismissTimer.Stop()
		g.dismissTimer = nil
	}
	if g.activeID == "" {
		return
	}
	id := g.activeID
	g.activeID = ""
	if err := g.renderer.Clear(ctx, id); err != nil {
		g.logger.Debug("alert clear failed", "alert_id", id, "error", err)
	}
}
