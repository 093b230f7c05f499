package classify

import "testing"

// =============================================================================
// Channel Classification Tests
// =============================================================================

// TestClassify_CollectOrder verifies that a typical pickup order lands in the
// Collect channel.
func TestClassify_CollectOrder(t *testing.T) {
	cfg := DefaultConfig()

	got := Classify("Click & Collect", "ZCS", "OPEN", cfg)
	if got != Collect {
		t.Errorf("expected Collect, got %s", got)
	}
}

// TestClassify_WoltOrder verifies that express-delivery orders land in the
// Wolt channel.
func TestClassify_WoltOrder(t *testing.T) {
	cfg := DefaultConfig()

	got := Classify("Express Delivery", "EXP", "OPEN", cfg)
	if got != Wolt {
		t.Errorf("expected Wolt, got %s", got)
	}
}

// TestClassify_WoltBeatsCollect verifies channel priority: a row matching both
// vocabularies counts once, as Wolt.
func TestClassify_WoltBeatsCollect(t *testing.T) {
	cfg := DefaultConfig()

	got := Classify("Express Collect", "ZCS", "OPEN", cfg)
	if got != Wolt {
		t.Errorf("expected Wolt to take priority over Collect, got %s", got)
	}
}

// TestClassify_CompletedExcluded verifies that a completed status excludes the
// row regardless of its type text.
func TestClassify_CompletedExcluded(t *testing.T) {
	cfg := DefaultConfig()

	for _, status := range []string{"COMPLETED", "Picked", "noudettu", "Invoice LASKUTETTU"} {
		got := Classify("Click & Collect", "ZCS", status, cfg)
		if got != Excluded {
			t.Errorf("status %q: expected Excluded, got %s", status, got)
		}
	}
}

// TestClassify_EmptyStatusExcluded verifies that a blank status means the
// order has left the pending queue.
func TestClassify_EmptyStatusExcluded(t *testing.T) {
	cfg := DefaultConfig()

	got := Classify("Click & Collect", "ZCS", "   ", cfg)
	if got != Excluded {
		t.Errorf("expected Excluded for blank status, got %s", got)
	}
}

// TestClassify_GenericLabelNeverCollect verifies that unspecific type labels
// cannot be counted as Collect even when the code matches.
func TestClassify_GenericLabelNeverCollect(t *testing.T) {
	cfg := DefaultConfig()

	for _, label := range []string{"Order", "orders", "", "Standard"} {
		got := Classify(label, "", "OPEN", cfg)
		if got != Neither {
			t.Errorf("label %q: expected Neither, got %s", label, got)
		}
	}
}

// TestClassify_GenericLabelStillWolt verifies the generic-label guard applies
// only to Collect; a Wolt code still wins on a generic label.
func TestClassify_GenericLabelStillWolt(t *testing.T) {
	cfg := DefaultConfig()

	got := Classify("Order", "EXP", "OPEN", cfg)
	if got != Wolt {
		t.Errorf("expected Wolt, got %s", got)
	}
}

// TestClassify_ShippingVetoesCollect verifies that a shipping keyword in the
// type text blocks a Collect match.
func TestClassify_ShippingVetoesCollect(t *testing.T) {
	cfg := DefaultConfig()

	got := Classify("Home Delivery Collect", "ZCS", "OPEN", cfg)
	if got != Neither {
		t.Errorf("expected shipping keyword to veto Collect, got %s", got)
	}
}

// TestClassify_PlainDeliveryNeither verifies that an ordinary home-delivery
// row matches no watched channel.
func TestClassify_PlainDeliveryNeither(t *testing.T) {
	cfg := DefaultConfig()

	got := Classify("Home Delivery", "ZHD", "OPEN", cfg)
	if got != Neither {
		t.Errorf("expected Neither, got %s", got)
	}
}

// TestClassify_CaseInsensitive verifies that vocab matching ignores case and
// surrounding whitespace.
func TestClassify_CaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()

	if got := Classify("  CLICK & COLLECT  ", "", "open", cfg); got != Collect {
		t.Errorf("expected Collect, got %s", got)
	}
	if got := Classify("wOlT order", "", "OPEN", cfg); got != Wolt {
		t.Errorf("expected Wolt, got %s", got)
	}
}

// =============================================================================
// Completed Status Tests
// =============================================================================

// TestIsCompletedStatus_SubstringMatch verifies the substring fallback used
// for composite status texts.
func TestIsCompletedStatus_SubstringMatch(t *testing.T) {
	cfg := DefaultConfig()

	if !IsCompletedStatus("Order DELIVERED to customer", cfg) {
		t.Error("expected substring match on DELIVERED")
	}
	if IsCompletedStatus("OPEN", cfg) {
		t.Error("expected OPEN to remain pending")
	}
}

// TestIsCompletedStatus_Empty verifies blank statuses count as completed.
func TestIsCompletedStatus_Empty(t *testing.T) {
	cfg := DefaultConfig()

	if !IsCompletedStatus("", cfg) {
		t.Error("expected empty status to be completed")
	}
	if !IsCompletedStatus("   ", cfg) {
		t.Error("expected whitespace status to be completed")
	}
}

// TestChannel_String covers the enum labels used in logs and alerts.
func TestChannel_String(t *testing.T) {
	cases := map[Channel]string{
		Neither:  "neither",
		Collect:  "collect",
		Wolt:     "wolt",
		Excluded: "excluded",
	}
	for ch, want := range cases {
		if got := ch.String(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}
