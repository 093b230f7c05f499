package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/mkarvonen/orderwatch/internal/classify"
)

var testNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

// payload builds the flat columnar layout: column count, headers, rows.
func payload(headers []string, rows ...[]Cell) []Cell {
	cells := []Cell{Number(float64(len(headers)))}
	for _, h := range headers {
		cells = append(cells, String(h))
	}
	for _, row := range rows {
		cells = append(cells, row...)
	}
	return cells
}

// =============================================================================
// Payload Structure Tests
// =============================================================================

// TestParse_EmptyPayloadIsZeroState verifies that an empty array is a valid
// zero-order snapshot, not an error.
func TestParse_EmptyPayloadIsZeroState(t *testing.T) {
	snap, err := Parse([]Cell{}, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 0 || snap.WoltCount != 0 {
		t.Errorf("expected zero counts, got collect=%d wolt=%d", snap.CollectCount, snap.WoltCount)
	}
	if snap.CapturedAt != testNow.UnixMilli() {
		t.Errorf("expected capture timestamp %d, got %d", testNow.UnixMilli(), snap.CapturedAt)
	}
}

// TestParse_NonNumericColumnCount verifies that a payload not starting with
// a column count is rejected.
func TestParse_NonNumericColumnCount(t *testing.T) {
	_, err := Parse([]Cell{String("ORDER_ID")}, classify.DefaultConfig(), testNow)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

// TestParse_ColumnCountOutOfRange verifies the [1,200] bounds on the column
// count.
func TestParse_ColumnCountOutOfRange(t *testing.T) {
	for _, n := range []float64{0, -3, 201, 4.5} {
		_, err := Parse([]Cell{Number(n), String("A"), String("B")}, classify.DefaultConfig(), testNow)
		if !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("count %v: expected ErrMalformedPayload, got %v", n, err)
		}
	}
}

// TestParse_HeaderOnlyPayload verifies that headers without a single data
// cell are malformed.
func TestParse_HeaderOnlyPayload(t *testing.T) {
	cells := []Cell{Number(2), String("ORDER_ID"), String("STATUS_TEXT")}
	_, err := Parse(cells, classify.DefaultConfig(), testNow)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

// TestParse_TrailingPartialRowDiscarded verifies that an incomplete final row
// is dropped rather than failing the whole payload.
func TestParse_TrailingPartialRowDiscarded(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT", "ORDER_ID"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1001")},
	)
	// Two cells of a second row, missing the rest.
	cells = append(cells, String("Click & Collect"), String("ZCS"))

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 1 {
		t.Errorf("expected 1 collect order, got %d", snap.CollectCount)
	}
}

// =============================================================================
// Classification & Dedup Tests
// =============================================================================

// TestParse_SingleCollectOrder walks the canonical four-column payload
// through the full pipeline.
func TestParse_SingleCollectOrder(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT", "ORDER_ID"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1001")},
	)

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 1 {
		t.Errorf("expected collect count 1, got %d", snap.CollectCount)
	}
	if snap.WoltCount != 0 {
		t.Errorf("expected wolt count 0, got %d", snap.WoltCount)
	}
}

// TestParse_DuplicateOrderIDCountedOnce verifies dedup across repeated rows
// of the same order.
func TestParse_DuplicateOrderIDCountedOnce(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT", "ORDER_ID"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1001")},
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1001")},
		[]Cell{String("Express"), String("EXP"), String("OPEN"), String("2001")},
		[]Cell{String("Express"), String("EXP"), String("OPEN"), String("2001")},
	)

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 1 {
		t.Errorf("expected collect count 1, got %d", snap.CollectCount)
	}
	if snap.WoltCount != 1 {
		t.Errorf("expected wolt count 1, got %d", snap.WoltCount)
	}
}

// TestParse_Idempotent verifies re-parsing the same payload yields the same
// counts; dedup state never leaks between runs.
func TestParse_Idempotent(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT", "ORDER_ID"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1001")},
		[]Cell{String("Express"), String("EXP"), String("OPEN"), String("2001")},
	)

	first, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.CollectCount != second.CollectCount || first.WoltCount != second.WoltCount {
		t.Errorf("expected identical counts across parses, got %+v then %+v", first, second)
	}
}

// TestParse_HeaderFlagRowSkipped verifies that subtotal rows flagged via
// IS_HEADER do not contribute to counts.
func TestParse_HeaderFlagRowSkipped(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT", "ORDER_ID", "IS_HEADER"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String(""), String(""), String(""), String("X")},
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1001"), Bool(false)},
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1002"), Bool(true)},
	)

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 1 {
		t.Errorf("expected header rows to be skipped, got collect count %d", snap.CollectCount)
	}
}

// TestParse_CompletedOrdersExcluded verifies status filtering end to end.
func TestParse_CompletedOrdersExcluded(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT", "ORDER_ID"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN"), String("1001")},
		[]Cell{String("Click & Collect"), String("ZCS"), String("NOUDETTU"), String("1002")},
		[]Cell{String("Express"), String("EXP"), String(""), String("2001")},
	)

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 1 {
		t.Errorf("expected completed collect order excluded, got %d", snap.CollectCount)
	}
	if snap.WoltCount != 0 {
		t.Errorf("expected blank-status wolt order excluded, got %d", snap.WoltCount)
	}
}

// TestParse_MissingOrderIDColumn verifies the degraded mode: rows get
// positional synthetic ids and every row counts.
func TestParse_MissingOrderIDColumn(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN")},
		[]Cell{String("Click & Collect"), String("ZCS"), String("OPEN")},
	)

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 2 {
		t.Errorf("expected both rows counted without an id column, got %d", snap.CollectCount)
	}
}

// TestParse_ColumnAliasFallback verifies that alternate header names resolve
// to the same logical columns.
func TestParse_ColumnAliasFallback(t *testing.T) {
	headers := []string{"DELIVERY_TYPE", "TXT_STATUS", "SALES_ORDER"}
	cells := payload(headers,
		[]Cell{String("Click & Collect"), String("OPEN"), String("9001")},
	)

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.CollectCount != 1 {
		t.Errorf("expected aliased columns to resolve, got collect count %d", snap.CollectCount)
	}
}

// TestParse_WoltOrderDetail verifies that wolt rows carry order detail with
// timestamps and shipping labels into the snapshot.
func TestParse_WoltOrderDetail(t *testing.T) {
	headers := []string{"ORDER_TYPE_TEXT", "ORDER_TYPE", "STATUS_TEXT", "ORDER_ID", "WADAT_IST", "CUSTOMER_NAME"}
	ts := testNow.Add(-30 * time.Minute).UnixMilli()
	cells := payload(headers,
		[]Cell{String("Express Delivery"), String("EXP"), String("OPEN"), String("2001"), Number(float64(ts)), String("Asta V")},
	)

	snap, err := Parse(cells, classify.DefaultConfig(), testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(snap.WoltOrders) != 1 {
		t.Fatalf("expected one wolt order, got %d", len(snap.WoltOrders))
	}
	order := snap.WoltOrders[0]
	if order.OrderID != "2001" {
		t.Errorf("expected order id 2001, got %s", order.OrderID)
	}
	if order.Timestamp != ts {
		t.Errorf("expected timestamp %d, got %d", ts, order.Timestamp)
	}
	if order.ShippingType != "Express Delivery" {
		t.Errorf("expected shipping type from type text, got %q", order.ShippingType)
	}
	if order.CustomerName != "Asta V" {
		t.Errorf("expected customer name, got %q", order.CustomerName)
	}
	if snap.WoltOldest != ts {
		t.Errorf("expected oldest wolt timestamp %d, got %d", ts, snap.WoltOldest)
	}
}

// =============================================================================
// Cell Decoding Tests
// =============================================================================

// TestCell_TimestampMillis covers the three date shapes the host page emits.
func TestCell_TimestampMillis(t *testing.T) {
	if got := Number(1741946400000).TimestampMillis(); got != 1741946400000 {
		t.Errorf("numeric cell: expected 1741946400000, got %d", got)
	}
	if got := String("/Date(1741946400000)/").TimestampMillis(); got != 1741946400000 {
		t.Errorf("sap date cell: expected 1741946400000, got %d", got)
	}
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := String("2025-03-14").TimestampMillis(); got != want {
		t.Errorf("iso date cell: expected %d, got %d", want, got)
	}
	if got := String("not a date").TimestampMillis(); got != 0 {
		t.Errorf("garbage cell: expected 0, got %d", got)
	}
	if got := Absent().TimestampMillis(); got != 0 {
		t.Errorf("absent cell: expected 0, got %d", got)
	}
}

// TestCell_IsTruthyFlag covers the header-flag shapes.
func TestCell_IsTruthyFlag(t *testing.T) {
	truthy := []Cell{Bool(true), String("X"), String("true")}
	for _, c := range truthy {
		if !c.IsTruthyFlag() {
			t.Errorf("expected %v to be a truthy flag", c)
		}
	}
	falsy := []Cell{Bool(false), String("x"), String(""), String("yes"), Number(1), Absent()}
	for _, c := range falsy {
		if c.IsTruthyFlag() {
			t.Errorf("expected %v not to be a truthy flag", c)
		}
	}
}

// TestCellsFromJSON verifies the decoded-JSON value mapping.
func TestCellsFromJSON(t *testing.T) {
	cells := CellsFromJSON([]any{"a", 4.0, true, nil, map[string]any{}})

	wantKinds := []CellKind{CellString, CellNumber, CellBool, CellAbsent, CellAbsent}
	for i, want := range wantKinds {
		if cells[i].Kind() != want {
			t.Errorf("cell %d: expected kind %v, got %v", i, want, cells[i].Kind())
		}
	}
}
