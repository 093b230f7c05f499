package alert

import (
	"context"
	"errors"
)

// Fanout delivers to several renderers. Present succeeds when at least
// one renderer accepted the alert; Clear is best-effort everywhere.
type Fanout []Renderer

func (f Fanout) Present(ctx context.Context, a Alert) error {
	if len(f) == 0 {
		return errors.New("alert: no renderers configured")
	}
	var firstErr error
	delivered := false
	for _, r := range f {
		if err := r.Present(ctx, a); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return firstErr
}

func (f Fanout) Clear(ctx context.Context, alertID string) error {
	var firstErr error
	for _, r := range f {
		if err := r.Clear(ctx, alertID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
