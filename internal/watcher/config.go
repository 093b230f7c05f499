package watcher

import (
	"fmt"
	"time"

	"github.com/mkarvonen/orderwatch/internal/reconcile"
)

// Config holds the watcher's loop tuning. The poll interval itself is a
// runtime setting read from the store each cycle, not part of this
// struct.
type Config struct {
	InboxBufferSize  int           `toml:"inbox_buffer_size"`
	InboxSendTimeout time.Duration `toml:"inbox_send_timeout"`
	CoalesceWindow   time.Duration `toml:"coalesce_window"`
	ReinjectGrace    time.Duration `toml:"reinject_grace"`
	TriggerTimeout   time.Duration `toml:"trigger_timeout"`
}

// DefaultConfig returns the loop tuning used in production.
func DefaultConfig() Config {
	return Config{
		InboxBufferSize:  256,
		InboxSendTimeout: 2 * time.Second,
		CoalesceWindow:   reconcile.DefaultWindow,
		ReinjectGrace:    500 * time.Millisecond,
		TriggerTimeout:   5 * time.Second,
	}
}

func validateConfig(c Config) error {
	if c.InboxBufferSize <= 0 {
		return fmt.Errorf("watcher inbox_buffer_size must be positive")
	}
	if c.InboxSendTimeout <= 0 {
		return fmt.Errorf("watcher inbox_send_timeout must be positive")
	}
	if c.CoalesceWindow <= 0 {
		return fmt.Errorf("watcher coalesce_window must be positive")
	}
	if c.ReinjectGrace <= 0 {
		return fmt.Errorf("watcher reinject_grace must be positive")
	}
	if c.TriggerTimeout <= 0 {
		return fmt.Errorf("watcher trigger_timeout must be positive")
	}
	return nil
}
