package reconcile

import (
	"testing"
	"time"

	"github.com/mkarvonen/orderwatch/internal/classify"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

// =============================================================================
// Notification Delta Tests
// =============================================================================

// TestApply_FirstOrdersNotify verifies that counts rising from a fresh state
// fire one notification per channel with the full delta.
func TestApply_FirstOrdersNotify(t *testing.T) {
	next, notifs := Apply(State{}, 2, 1, testNow)

	if len(notifs) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifs))
	}
	// Wolt is evaluated first.
	if notifs[0].Channel != classify.Wolt || notifs[0].NewCount != 1 {
		t.Errorf("expected wolt notification with newCount 1, got %+v", notifs[0])
	}
	if notifs[1].Channel != classify.Collect || notifs[1].NewCount != 2 {
		t.Errorf("expected collect notification with newCount 2, got %+v", notifs[1])
	}
	if next.LastCollect != 2 || next.NotifiedCollect != 2 {
		t.Errorf("expected collect watermark 2, got %+v", next)
	}
	if next.LastWolt != 1 || next.NotifiedWolt != 1 {
		t.Errorf("expected wolt watermark 1, got %+v", next)
	}
}

// TestApply_DeltaAboveWatermark verifies newCount is the rise above the
// notified watermark, not the absolute count.
func TestApply_DeltaAboveWatermark(t *testing.T) {
	st := State{LastCollect: 3, NotifiedCollect: 3}

	next, notifs := Apply(st, 5, 0, testNow)

	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].NewCount != 2 {
		t.Errorf("expected newCount 2, got %d", notifs[0].NewCount)
	}
	if notifs[0].TotalPending != 5 {
		t.Errorf("expected totalPending 5, got %d", notifs[0].TotalPending)
	}
	if next.NotifiedCollect != 5 {
		t.Errorf("expected watermark advanced to 5, got %d", next.NotifiedCollect)
	}
}

// TestApply_UnchangedCountSilent verifies a steady count never re-notifies.
func TestApply_UnchangedCountSilent(t *testing.T) {
	st := State{LastCollect: 4, NotifiedCollect: 4}

	_, notifs := Apply(st, 4, 0, testNow)

	if len(notifs) != 0 {
		t.Errorf("expected no notifications for unchanged count, got %d", len(notifs))
	}
}

// TestApply_WatermarkFollowsCountDown verifies that a drained queue re-arms
// notifications: after the count drops, the next rise fires again.
func TestApply_WatermarkFollowsCountDown(t *testing.T) {
	st := State{LastCollect: 5, NotifiedCollect: 5}

	// Two consecutive zeros accept the drop.
	st, _ = Apply(st, 0, 0, testNow)
	st, notifs := Apply(st, 0, 0, testNow)
	if len(notifs) != 0 {
		t.Fatalf("expected no notification on drain, got %d", len(notifs))
	}
	if st.NotifiedCollect != 0 {
		t.Fatalf("expected watermark to follow the count down, got %d", st.NotifiedCollect)
	}

	_, notifs = Apply(st, 2, 0, testNow)
	if len(notifs) != 1 || notifs[0].NewCount != 2 {
		t.Errorf("expected re-armed notification with newCount 2, got %+v", notifs)
	}
}

// =============================================================================
// Zero-Debounce Tests
// =============================================================================

// TestApply_SingleZeroHeld verifies a lone zero reading after a positive
// count keeps the previous value.
func TestApply_SingleZeroHeld(t *testing.T) {
	st := State{LastCollect: 5, NotifiedCollect: 5}

	next, notifs := Apply(st, 0, 0, testNow)

	if next.LastCollect != 5 {
		t.Errorf("expected held count 5, got %d", next.LastCollect)
	}
	if next.CollectZeros != 1 {
		t.Errorf("expected one pending zero, got %d", next.CollectZeros)
	}
	if len(notifs) != 0 {
		t.Errorf("expected no notifications, got %d", len(notifs))
	}
}

// TestApply_SecondZeroAccepted verifies the second consecutive zero drops
// the count for real.
func TestApply_SecondZeroAccepted(t *testing.T) {
	st := State{LastCollect: 5, NotifiedCollect: 5, CollectZeros: 1}

	next, _ := Apply(st, 0, 0, testNow)

	if next.LastCollect != 0 {
		t.Errorf("expected accepted zero, got %d", next.LastCollect)
	}
	if next.NotifiedCollect != 0 {
		t.Errorf("expected watermark 0, got %d", next.NotifiedCollect)
	}
}

// TestApply_NonZeroResetsZeroStreak verifies a positive reading between
// zeros restarts the confirmation requirement.
func TestApply_NonZeroResetsZeroStreak(t *testing.T) {
	st := State{LastCollect: 4, NotifiedCollect: 4, CollectZeros: 1}

	next, _ := Apply(st, 4, 0, testNow)
	if next.CollectZeros != 0 {
		t.Fatalf("expected zero streak reset, got %d", next.CollectZeros)
	}

	// A fresh single zero is held again.
	next, _ = Apply(next, 0, 0, testNow)
	if next.LastCollect != 4 {
		t.Errorf("expected held count 4, got %d", next.LastCollect)
	}
}

// TestApply_ZeroFromZeroNotHeld verifies debounce only engages when dropping
// from a positive count.
func TestApply_ZeroFromZeroNotHeld(t *testing.T) {
	next, _ := Apply(State{}, 0, 0, testNow)

	if next.LastCollect != 0 || next.CollectZeros != 0 {
		t.Errorf("expected plain zero state, got %+v", next)
	}
}

// TestApply_ChannelsIndependent verifies the two channels debounce and
// notify independently in one pass.
func TestApply_ChannelsIndependent(t *testing.T) {
	st := State{LastCollect: 3, NotifiedCollect: 3, LastWolt: 1, NotifiedWolt: 1}

	// Collect reads a transient zero while wolt gains an order.
	next, notifs := Apply(st, 0, 2, testNow)

	if next.LastCollect != 3 {
		t.Errorf("expected collect held at 3, got %d", next.LastCollect)
	}
	if len(notifs) != 1 || notifs[0].Channel != classify.Wolt || notifs[0].NewCount != 1 {
		t.Errorf("expected a single wolt notification, got %+v", notifs)
	}
}

// TestApply_NotificationFields verifies id and timestamp population.
func TestApply_NotificationFields(t *testing.T) {
	_, notifs := Apply(State{}, 1, 0, testNow)

	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	n := notifs[0]
	if n.ID == "" {
		t.Error("expected a generated notification id")
	}
	if n.FiredAt != testNow.UnixMilli() {
		t.Errorf("expected firedAt %d, got %d", testNow.UnixMilli(), n.FiredAt)
	}
	if n.ChannelName != "collect" {
		t.Errorf("expected channel name collect, got %s", n.ChannelName)
	}
}
