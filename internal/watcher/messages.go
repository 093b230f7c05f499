package watcher

import (
	"github.com/mkarvonen/orderwatch/internal/alert"
	"github.com/mkarvonen/orderwatch/internal/feed"
)

// MsgType identifies the kind of message in the watcher's inbox.
type MsgType int

const (
	MsgPayload MsgType = iota
	MsgFlushWindow
	MsgCheckNow
	MsgSettingsChanged
	MsgGetSummary
	MsgShutdown
)

func (t MsgType) String() string {
	switch t {
	case MsgPayload:
		return "payload"
	case MsgFlushWindow:
		return "flush_window"
	case MsgCheckNow:
		return "check_now"
	case MsgSettingsChanged:
		return "settings_changed"
	case MsgGetSummary:
		return "get_summary"
	case MsgShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// InboxMessage is the envelope for all watcher messages. Queries carry
// a ResponseChan; commands leave it nil.
type InboxMessage struct {
	Type         MsgType
	Data         any
	ResponseChan chan any
}

// PayloadMsg carries one raw scrape payload from a page context.
type PayloadMsg struct {
	FrameID string
	Cells   []feed.Cell
}

// FlushWindowMsg carries the winning snapshot of a coalescing window.
type FlushWindowMsg struct {
	Snapshot feed.Snapshot
}

// Summary is the read-only snapshot handed to the popup/dashboard
// surfaces. Built from the watcher's own state, never by letting other
// contexts touch shared memory.
type Summary struct {
	CollectCount         int          `json:"collectCount"`
	WoltCount            int          `json:"woltCount"`
	TotalCount           int          `json:"totalCount"`
	ConnectionStatus     string       `json:"connectionStatus"`
	LastError            string       `json:"lastError,omitempty"`
	LastCheck            int64        `json:"lastCheck"`
	OldestOrderTimestamp int64        `json:"oldestOrderTimestamp"`
	PendingOrders        []feed.Order `json:"pendingOrders"`
	Badge                alert.Badge  `json:"badge"`
	ConsecutiveErrors    int          `json:"consecutiveErrors"`
}
