package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkarvonen/orderwatch/internal/classify"
)

// ErrMalformedPayload marks a payload whose structure cannot be decoded
// at all. The caller must not emit a snapshot for it; the poll scheduler
// counts it as a soft failure.
var ErrMalformedPayload = errors.New("feed: malformed payload")

const (
	minColumns = 1
	maxColumns = 200
)

// Row is one decoded order row, prior to classification.
type Row struct {
	OrderID   string
	HasID     bool
	TypeText  string
	TypeCode  string
	Status    string
	Timestamp int64 // epoch millis, 0 when absent
	Customer  string
	IsHeader  bool
}

// Order is one classified Wolt order carried in a snapshot for display.
type Order struct {
	OrderID      string `json:"orderId"`
	Timestamp    int64  `json:"timestamp"`
	ShippingType string `json:"shippingType"`
	CustomerName string `json:"customerName"`
}

// Snapshot is one successfully parsed-and-aggregated scrape result.
// Immutable once produced; timestamps are epoch millis with 0 meaning
// unknown.
type Snapshot struct {
	CollectCount  int     `json:"collectCount"`
	CollectOldest int64   `json:"collectOldestTimestamp"`
	WoltCount     int     `json:"woltCount"`
	WoltOldest    int64   `json:"woltOldestTimestamp"`
	WoltOrders    []Order `json:"woltOrders"`
	CapturedAt    int64   `json:"capturedAt"`
}

// Total is the combined pending count, used by the coalescing window to
// pick the most complete snapshot of a burst.
func (s Snapshot) Total() int { return s.CollectCount + s.WoltCount }

// Parse decodes the flat columnar payload and aggregates it into a
// channel snapshot. Layout: element 0 is the column count, the next
// numCols elements are header names, then rows of numCols cells each.
// A trailing partial row is discarded. An empty payload is a valid
// zero-state result, not an error.
func Parse(cells []Cell, cfg classify.Config, now time.Time) (Snapshot, error) {
	if len(cells) == 0 {
		return Snapshot{CapturedAt: now.UnixMilli()}, nil
	}

	numCols, ok := cells[0].intValue()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: first element is not a column count", ErrMalformedPayload)
	}
	if numCols < minColumns || numCols > maxColumns {
		return Snapshot{}, fmt.Errorf("%w: column count %d out of range [%d,%d]",
			ErrMalformedPayload, numCols, minColumns, maxColumns)
	}
	// Header block plus at least one data cell.
	if len(cells) < numCols+2 {
		return Snapshot{}, fmt.Errorf("%w: %d cells cannot hold %d headers and a row",
			ErrMalformedPayload, len(cells), numCols)
	}

	headers := make([]string, numCols)
	for i := 0; i < numCols; i++ {
		headers[i] = cells[1+i].Text()
	}
	cols := resolveColumns(headers)

	dataStart := 1 + numCols
	numRows := (len(cells) - dataStart) / numCols

	rows := make([]Row, 0, numRows)
	for r := 0; r < numRows; r++ {
		base := dataStart + r*numCols
		cell := func(idx int) Cell {
			if idx == columnNotFound {
				return Absent()
			}
			return cells[base+idx]
		}

		row := Row{
			TypeText:  cell(cols.typeText).Text(),
			TypeCode:  cell(cols.typeCode).Text(),
			Status:    cell(cols.status).Text(),
			Timestamp: cell(cols.dateTime).TimestampMillis(),
			Customer:  cell(cols.customer).Text(),
			IsHeader:  cell(cols.isHeader).IsTruthyFlag(),
		}
		if cols.HasOrderID() {
			row.OrderID = cell(cols.orderID).Text()
			row.HasID = true
		}
		rows = append(rows, row)
	}

	return Aggregate(rows, cfg, now), nil
}
