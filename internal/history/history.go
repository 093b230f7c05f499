// Package history keeps the same-day log of notified orders shown on
// the shift dashboard.
package history

import (
	"time"

	"github.com/google/uuid"
)

// MaxEntries caps the per-day log; the oldest entries are evicted
// first.
const MaxEntries = 500

// Entry records one notification burst: how many new orders arrived,
// for which channel, and when.
type Entry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Count     int    `json:"count"`
	Type      string `json:"type"`
	Hour      int    `json:"hour"`
}

// Log is the append-only order history for one local calendar day.
type Log struct {
	DayKey       string  `json:"dayKey"`
	SessionStart int64   `json:"sessionStart"`
	Orders       []Entry `json:"orders"`
}

// DayKey formats a local calendar day as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ForDay returns the log valid for now's calendar day: the receiver
// itself when the day still matches, otherwise a fresh empty log keyed
// to today. Stale entries are never carried across the rollover.
func (l Log) ForDay(now time.Time) Log {
	key := DayKey(now)
	if l.DayKey != key {
		return Log{
			DayKey:       key,
			SessionStart: now.UnixMilli(),
			Orders:       []Entry{},
		}
	}
	if l.SessionStart == 0 {
		l.SessionStart = now.UnixMilli()
	}
	return l
}

// Append records one notification burst, evicting the oldest entries
// past MaxEntries. Callers must Append to the log returned by ForDay.
func (l *Log) Append(count int, orderType string, now time.Time) {
	l.Orders = append(l.Orders, Entry{
		ID:        uuid.New().String(),
		Timestamp: now.UnixMilli(),
		Count:     count,
		Type:      orderType,
		Hour:      now.Hour(),
	})
	if len(l.Orders) > MaxEntries {
		l.Orders = l.Orders[len(l.Orders)-MaxEntries:]
	}
}
