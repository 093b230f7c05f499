package watcher

import (
	"testing"
	"time"

	"github.com/mkarvonen/orderwatch/internal/testutil"
)

// TestInbox_SendReceive verifies the basic send/receive path and counters.
func TestInbox_SendReceive(t *testing.T) {
	ib := NewInbox(4, time.Second, testutil.NewTestLogger().Logger())

	if !ib.Send(InboxMessage{Type: MsgCheckNow}) {
		t.Fatal("expected send to succeed")
	}

	msg, ok := ib.TryReceive()
	if !ok {
		t.Fatal("expected a message")
	}
	if msg.Type != MsgCheckNow {
		t.Errorf("expected check_now, got %s", msg.Type)
	}

	stats := ib.Stats()
	if stats.TotalSent != 1 || stats.TotalReceived != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestInbox_SendTimeout verifies a full inbox times out rather than
// blocking the caller forever.
func TestInbox_SendTimeout(t *testing.T) {
	logger := testutil.NewTestLogger()
	ib := NewInbox(1, 20*time.Millisecond, logger.Logger())

	if !ib.Send(InboxMessage{Type: MsgCheckNow}) {
		t.Fatal("expected first send to succeed")
	}
	if ib.Send(InboxMessage{Type: MsgCheckNow}) {
		t.Fatal("expected second send to time out")
	}

	if ib.Stats().TimeoutCount != 1 {
		t.Errorf("expected one timeout recorded, got %d", ib.Stats().TimeoutCount)
	}
	if !logger.HasWarning() {
		t.Error("expected a timeout warning")
	}
}

// TestInbox_TryReceiveEmpty verifies the non-blocking receive on an empty
// inbox.
func TestInbox_TryReceiveEmpty(t *testing.T) {
	ib := NewInbox(1, time.Second, testutil.NewTestLogger().Logger())

	if _, ok := ib.TryReceive(); ok {
		t.Error("expected no message from an empty inbox")
	}
}

// TestMsgType_String covers the log labels.
func TestMsgType_String(t *testing.T) {
	cases := map[MsgType]string{
		MsgPayload:         "payload",
		MsgFlushWindow:     "flush_window",
		MsgCheckNow:        "check_now",
		MsgSettingsChanged: "settings_changed",
		MsgGetSummary:      "get_summary",
		MsgShutdown:        "shutdown",
		MsgType(99):        "unknown",
	}
	for mt, want := range cases {
		if got := mt.String(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}
