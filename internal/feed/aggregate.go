package feed

import (
	"fmt"
	"time"

	"github.com/mkarvonen/orderwatch/internal/classify"
)

// Aggregate classifies a batch of rows and folds them into a snapshot.
// Rows sharing an already-counted order id are ignored, so a page that
// repeats rows across pagination never double-counts. Rows without a
// resolvable id get a positional synthetic id; dedup is meaningless in
// that degraded mode but aggregation still works.
func Aggregate(rows []Row, cfg classify.Config, now time.Time) Snapshot {
	snap := Snapshot{
		WoltOrders: []Order{},
		CapturedAt: now.UnixMilli(),
	}

	collectSeen := make(map[string]bool)
	woltSeen := make(map[string]bool)

	for i, row := range rows {
		if row.IsHeader {
			continue
		}

		id := row.OrderID
		if !row.HasID {
			id = fmt.Sprintf("row-%d", i)
		}
		if collectSeen[id] || woltSeen[id] {
			continue
		}

		switch classify.Classify(row.TypeText, row.TypeCode, row.Status, cfg) {
		case classify.Wolt:
			woltSeen[id] = true
			snap.WoltCount++
			snap.WoltOrders = append(snap.WoltOrders, Order{
				OrderID:      id,
				Timestamp:    orNow(row.Timestamp, now),
				ShippingType: shippingLabel(row),
				CustomerName: row.Customer,
			})
			if row.Timestamp > 0 && (snap.WoltOldest == 0 || row.Timestamp < snap.WoltOldest) {
				snap.WoltOldest = row.Timestamp
			}
		case classify.Collect:
			collectSeen[id] = true
			snap.CollectCount++
			if row.Timestamp > 0 && (snap.CollectOldest == 0 || row.Timestamp < snap.CollectOldest) {
				snap.CollectOldest = row.Timestamp
			}
		}
	}

	return snap
}

func orNow(ts int64, now time.Time) int64 {
	if ts > 0 {
		return ts
	}
	return now.UnixMilli()
}

func shippingLabel(row Row) string {
	if row.TypeText != "" {
		return row.TypeText
	}
	if row.TypeCode != "" {
		return row.TypeCode
	}
	return "Express"
}
