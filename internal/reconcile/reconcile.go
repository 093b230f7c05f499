// Package reconcile turns the noisy per-poll count stream into a stable
// "new orders since last notification" signal. The transition function
// is pure; the watcher owns the single State instance and is the only
// writer of its persisted form.
package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/mkarvonen/orderwatch/internal/classify"
)

// zeroConfirmations is how many consecutive zero readings are required
// before a zero count is accepted. The host page transiently reports
// zero while navigating between sub-views; holding the previous value
// for one reading filters that without delaying real completions much.
const zeroConfirmations = 2

// State is the persisted reconciliation state, one instance
// process-wide. Zero value is the freshly-installed state.
type State struct {
	LastCollect     int `json:"lastCollect"`
	LastWolt        int `json:"lastWolt"`
	NotifiedCollect int `json:"notifiedCollect"`
	NotifiedWolt    int `json:"notifiedWolt"`
	CollectZeros    int `json:"collectZeros"`
	WoltZeros       int `json:"woltZeros"`
}

// Notification is emitted when a channel's accepted count rises above
// its notified watermark. NewCount is always >= 1.
type Notification struct {
	ID           string           `json:"id"`
	Channel      classify.Channel `json:"-"`
	ChannelName  string           `json:"channel"`
	TotalPending int              `json:"totalPending"`
	NewCount     int              `json:"newCount"`
	FiredAt      int64            `json:"firedAt"`
}

// debounce applies the consecutive-zero policy to one channel's
// incoming reading. A single zero after a positive count is held; the
// second consecutive zero is accepted. Any non-zero reading resets the
// counter and is accepted as-is.
func debounce(incoming, previous, zeros int) (accepted, newZeros int) {
	if incoming == 0 && previous > 0 {
		zeros++
		if zeros >= zeroConfirmations {
			return 0, zeros
		}
		return previous, zeros
	}
	return incoming, 0
}

// Apply runs one reconciliation pass over the winning snapshot of a
// coalescing window. Channels are evaluated independently, Wolt first;
// both may fire in the same pass. Watermarks and last counts always
// track the accepted value, so deltas stay correct across passes with
// no new orders and a drained queue re-arms notifications.
func Apply(st State, incomingCollect, incomingWolt int, now time.Time) (State, []Notification) {
	var notifs []Notification

	acceptedWolt, woltZeros := debounce(incomingWolt, st.LastWolt, st.WoltZeros)
	acceptedCollect, collectZeros := debounce(incomingCollect, st.LastCollect, st.CollectZeros)

	if acceptedWolt > st.NotifiedWolt {
		notifs = append(notifs, Notification{
			ID:           uuid.New().String(),
			Channel:      classify.Wolt,
			ChannelName:  classify.Wolt.String(),
			TotalPending: acceptedWolt,
			NewCount:     acceptedWolt - st.NotifiedWolt,
			FiredAt:      now.UnixMilli(),
		})
	}
	if acceptedCollect > st.NotifiedCollect {
		notifs = append(notifs, Notification{
			ID:           uuid.New().String(),
			Channel:      classify.Collect,
			ChannelName:  classify.Collect.String(),
			TotalPending: acceptedCollect,
			NewCount:     acceptedCollect - st.NotifiedCollect,
			FiredAt:      now.UnixMilli(),
		})
	}

	next := State{
		LastCollect:     acceptedCollect,
		LastWolt:        acceptedWolt,
		NotifiedCollect: acceptedCollect,
		NotifiedWolt:    acceptedWolt,
		CollectZeros:    collectZeros,
		WoltZeros:       woltZeros,
	}
	return next, notifs
}
