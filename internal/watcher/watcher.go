// Package watcher hosts the single-goroutine event loop that owns all
// mutable order-tracking state: it drives the poll schedule, feeds raw
// payloads through parse/classify/aggregate, runs the reconciliation
// state machine and fans notifications out to the alert gate. Every
// other context talks to it through the inbox, so there is exactly one
// logical writer of the persisted counts and watermarks.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mkarvonen/orderwatch/internal/alert"
	"github.com/mkarvonen/orderwatch/internal/classify"
	"github.com/mkarvonen/orderwatch/internal/feed"
	"github.com/mkarvonen/orderwatch/internal/history"
	"github.com/mkarvonen/orderwatch/internal/reconcile"
	"github.com/mkarvonen/orderwatch/internal/store"
)

// maxBackoffMultiplier caps the exponential poll backoff at 8x the base
// interval.
const maxBackoffMultiplier = 8

// fallbackDelay is used when the poll interval cannot even be read from
// the store.
const fallbackDelay = 30 * time.Second

// Failure causes surfaced to the connection indicator.
const (
	causePageClosed    = "open the order page"
	causeNotResponding = "page agent not responding"
)

// ErrShuttingDown is returned by queries once Stop has been called.
var ErrShuttingDown = errors.New("watcher: shutting down")

// Store is the durable state the watcher reads and writes. Implemented
// by internal/store; mocked in tests.
type Store interface {
	LoadState() (reconcile.State, error)
	SaveTick(st reconcile.State, snap feed.Snapshot, log *history.Log, now time.Time) error
	SetConnectionStatus(status, cause string, now time.Time) error
	History(now time.Time) (history.Log, error)
	Vocabulary() (classify.Config, error)
	PollIntervalSeconds() (int, error)
	AlertDurationSeconds() (int, error)
	SoundEnabled() (bool, error)
	RecordAlert(n reconcile.Notification) error
}

// Bridge reaches the browser-side scraping agents. Implemented by the
// API's agent hub.
type Bridge interface {
	// Contexts lists the ids of currently reachable page contexts.
	Contexts() []string
	// TriggerCheck asks one context to perform a fresh scrape.
	TriggerCheck(ctx context.Context, id string) error
	// Reinject asks one context to re-establish its scraping agent.
	Reinject(ctx context.Context, id string) error
}

// Watcher is the main event loop component.
type Watcher struct {
	config Config
	logger *slog.Logger

	store  Store
	bridge Bridge
	gate   *alert.Gate

	inbox     *Inbox
	coalescer *reconcile.Coalescer

	// Loop-owned state; touched only from Run's goroutine.
	state             reconcile.State
	lastSnapshot      feed.Snapshot
	connectionStatus  string
	lastError         string
	lastCheck         time.Time
	consecutiveErrors int

	pollTimer *time.Timer
	shutdown  chan struct{}
	done      chan struct{}
}

// New creates a watcher with validated configuration.
func New(config Config, st Store, bridge Bridge, gate *alert.Gate, logger *slog.Logger) (*Watcher, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	w := &Watcher{
		config:           config,
		logger:           logger,
		store:            st,
		bridge:           bridge,
		gate:             gate,
		inbox:            NewInbox(config.InboxBufferSize, config.InboxSendTimeout, logger),
		connectionStatus: store.StatusUnknown,
		shutdown:         make(chan struct{}),
		done:             make(chan struct{}),
	}
	w.coalescer = reconcile.NewCoalescer(config.CoalesceWindow, w.enqueueFlush)
	return w, nil
}

// enqueueFlush routes a coalescing-window winner back into the loop so
// reconciliation always runs on the loop goroutine.
func (w *Watcher) enqueueFlush(snap feed.Snapshot) {
	w.inbox.Send(InboxMessage{Type: MsgFlushWindow, Data: FlushWindowMsg{Snapshot: snap}})
}

// Run executes the main loop until Stop is called.
func (w *Watcher) Run() {
	defer close(w.done)

	if st, err := w.store.LoadState(); err != nil {
		w.logger.Error("failed to load reconciliation state", "error", err)
	} else {
		w.state = st
	}

	w.logger.Info("starting watcher")
	w.scheduleNext()
	defer w.pollTimer.Stop()

	for {
		select {
		case <-w.shutdown:
			w.handleShutdown()
			return

		case <-w.pollTimer.C:
			w.tick(time.Now())
			w.scheduleNext()

		case msg := <-w.inbox.ch:
			w.handleMessage(msg)
			w.inbox.UpdateDepthStats()
		}
	}
}

// Stop signals the loop to shut down and waits for it to drain.
func (w *Watcher) Stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	<-w.done
}

// scheduleNext cancels the pending tick and arms a fresh one. The timer
// is always recreated rather than left running, so an interval change
// or backoff adjustment never races a stale tick.
func (w *Watcher) scheduleNext() {
	delay := w.nextDelay()
	if w.pollTimer != nil {
		w.pollTimer.Stop()
	}
	w.pollTimer = time.NewTimer(delay)
	w.logger.Debug("next poll scheduled",
		"delay", delay,
		"consecutive_errors", w.consecutiveErrors)
}

// nextDelay computes the backoff-adjusted poll delay:
// clamp(5,60,base) * min(8, 2^consecutiveErrors).
func (w *Watcher) nextDelay() time.Duration {
	base, err := w.store.PollIntervalSeconds()
	if err != nil {
		w.logger.Warn("poll interval unavailable, using fallback",
			"fallback", fallbackDelay,
			"error", err)
		return fallbackDelay
	}

	multiplier := 1
	for i := 0; i < w.consecutiveErrors && multiplier < maxBackoffMultiplier; i++ {
		multiplier *= 2
	}
	return time.Duration(base) * time.Second * time.Duration(multiplier)
}

// tick is one poll attempt: reach every known page context, ask it to
// scrape, re-inject once on a dead channel. Counts are never touched
// here; only connection health is.
func (w *Watcher) tick(now time.Time) {
	contexts := w.bridge.Contexts()
	if len(contexts) == 0 {
		w.recordTickFailure(causePageClosed, now)
		return
	}

	succeeded := 0
	for _, id := range contexts {
		if w.triggerWithRetry(id) {
			succeeded++
		}
	}

	if succeeded == 0 {
		w.recordTickFailure(causeNotResponding, now)
		return
	}

	w.consecutiveErrors = 0
	w.connectionStatus = store.StatusConnected
	w.lastError = ""
	w.lastCheck = now
	if err := w.store.SetConnectionStatus(store.StatusConnected, "", now); err != nil {
		w.logger.Error("failed to persist connection status", "error", err)
	}
}

// triggerWithRetry asks one context to scrape, re-injecting the agent
// and retrying once if the first attempt fails.
func (w *Watcher) triggerWithRetry(id string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.TriggerTimeout)
	defer cancel()

	if err := w.bridge.TriggerCheck(ctx, id); err == nil {
		return true
	}

	if err := w.bridge.Reinject(ctx, id); err != nil {
		w.logger.Warn("agent re-injection failed", "context_id", id, "error", err)
		return false
	}
	// Give the re-injected agent a moment to come up before retrying.
	time.Sleep(w.config.ReinjectGrace)

	if err := w.bridge.TriggerCheck(ctx, id); err != nil {
		w.logger.Warn("scrape trigger failed after re-injection", "context_id", id, "error", err)
		return false
	}
	return true
}

func (w *Watcher) recordTickFailure(cause string, now time.Time) {
	w.consecutiveErrors++
	w.connectionStatus = store.StatusError
	w.lastError = cause
	w.lastCheck = now
	w.logger.Warn("poll tick failed",
		"cause", cause,
		"consecutive_errors", w.consecutiveErrors)
	if err := w.store.SetConnectionStatus(store.StatusError, cause, now); err != nil {
		w.logger.Error("failed to persist connection status", "error", err)
	}
}

// handleMessage dispatches inbox messages. Nothing here is allowed to
// escape as a panic or unhandled error; every failure converts to a
// status update or a log line.
func (w *Watcher) handleMessage(msg InboxMessage) {
	w.logger.Debug("handling message", "type", msg.Type.String())

	switch msg.Type {
	case MsgPayload:
		w.handlePayload(msg.Data.(PayloadMsg), time.Now())
	case MsgFlushWindow:
		w.reconcileSnapshot(msg.Data.(FlushWindowMsg).Snapshot, time.Now())
	case MsgCheckNow:
		w.tick(time.Now())
		w.scheduleNext()
	case MsgSettingsChanged:
		// Recompute the pending tick against the new interval.
		w.scheduleNext()
	case MsgGetSummary:
		if msg.ResponseChan != nil {
			msg.ResponseChan <- w.summary()
		}
	case MsgShutdown:
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
	default:
		w.logger.Warn("unknown message type", "type", msg.Type)
	}
}

// handlePayload parses one raw scrape payload and offers the resulting
// snapshot to the coalescing window. A malformed payload yields no
// snapshot and counts toward backoff.
func (w *Watcher) handlePayload(p PayloadMsg, now time.Time) {
	vocab, err := w.store.Vocabulary()
	if err != nil {
		w.logger.Error("classification config unavailable", "error", err)
		return
	}

	snap, err := feed.Parse(p.Cells, vocab, now)
	if err != nil {
		w.consecutiveErrors++
		w.logger.Warn("discarding malformed payload",
			"frame_id", p.FrameID,
			"cells", len(p.Cells),
			"error", err)
		return
	}

	w.logger.Debug("snapshot parsed",
		"frame_id", p.FrameID,
		"collect", snap.CollectCount,
		"wolt", snap.WoltCount)
	w.coalescer.Add(snap)
}

// reconcileSnapshot runs one reconciliation pass: read the persisted
// state, apply the zero-debounce transition, persist everything in one
// transaction, then dispatch notifications. If the persist fails the
// in-memory watermarks are left unadvanced so the next pass recomputes
// the same deltas instead of losing or double-counting orders.
func (w *Watcher) reconcileSnapshot(snap feed.Snapshot, now time.Time) {
	st, err := w.store.LoadState()
	if err != nil {
		w.logger.Error("skipping reconciliation, state unreadable", "error", err)
		return
	}

	next, notifs := reconcile.Apply(st, snap.CollectCount, snap.WoltCount, now)

	var dayLog *history.Log
	if len(notifs) > 0 {
		log, err := w.store.History(now)
		if err != nil {
			w.logger.Error("skipping reconciliation, history unreadable", "error", err)
			return
		}
		for _, n := range notifs {
			log.Append(n.NewCount, n.ChannelName, now)
		}
		dayLog = &log
	}

	if err := w.store.SaveTick(next, snap, dayLog, now); err != nil {
		w.logger.Error("reconciliation persist failed, watermarks held", "error", err)
		return
	}

	w.state = next
	w.lastSnapshot = snap
	w.connectionStatus = store.StatusConnected
	w.lastError = ""
	w.lastCheck = now

	if len(notifs) > 0 {
		w.dispatch(notifs, now)
	}

	badge := alert.BadgeFor(next.LastCollect, next.LastWolt)
	w.logger.Info("snapshot reconciled",
		"collect", next.LastCollect,
		"wolt", next.LastWolt,
		"notifications", len(notifs),
		"badge_total", badge.Total)
}

// dispatch routes notification events through the alert gate. The
// sound-enabled toggle suppresses presentation entirely; counts and
// watermarks are already persisted either way.
func (w *Watcher) dispatch(notifs []reconcile.Notification, now time.Time) {
	enabled, err := w.store.SoundEnabled()
	if err != nil {
		w.logger.Warn("alert settings unreadable, dispatching anyway", "error", err)
		enabled = true
	}

	for _, n := range notifs {
		if err := w.store.RecordAlert(n); err != nil {
			w.logger.Warn("failed to record alert event", "alert_id", n.ID, "error", err)
		}
		if !enabled {
			continue
		}

		durationSec, err := w.store.AlertDurationSeconds()
		if err != nil {
			w.logger.Warn("alert duration unreadable", "error", err)
			durationSec = 15
		}

		w.gate.Dispatch(context.Background(), alert.Alert{
			ID:           n.ID,
			Channel:      n.ChannelName,
			TotalPending: n.TotalPending,
			NewCount:     n.NewCount,
			Duration:     time.Duration(durationSec) * time.Second,
			FiredAt:      n.FiredAt,
		})
	}
}

func (w *Watcher) summary() Summary {
	oldest := w.lastSnapshot.CollectOldest
	if oldest == 0 {
		oldest = w.lastSnapshot.WoltOldest
	}
	pending := w.lastSnapshot.WoltOrders
	if pending == nil {
		pending = []feed.Order{}
	}
	return Summary{
		CollectCount:         w.state.LastCollect,
		WoltCount:            w.state.LastWolt,
		TotalCount:           w.state.LastCollect + w.state.LastWolt,
		ConnectionStatus:     w.connectionStatus,
		LastError:            w.lastError,
		LastCheck:            w.lastCheck.UnixMilli(),
		OldestOrderTimestamp: oldest,
		PendingOrders:        pending,
		Badge:                alert.BadgeFor(w.state.LastCollect, w.state.LastWolt),
		ConsecutiveErrors:    w.consecutiveErrors,
	}
}

// handleShutdown drains the inbox, flushes the coalescing window and
// tears down any active alert so a final legitimate update is not lost.
// The second drain picks up the flush message Close enqueues.
func (w *Watcher) handleShutdown() {
	w.logger.Info("shutting down watcher")

	w.drainInbox()
	w.coalescer.Close()
	w.drainInbox()

	w.gate.Teardown(context.Background())
	w.logger.Info("watcher shutdown complete")
}

func (w *Watcher) drainInbox() {
	for {
		msg, ok := w.inbox.TryReceive()
		if !ok {
			return
		}
		if msg.Type == MsgShutdown {
			continue
		}
		w.handleMessage(msg)
	}
}

// SubmitPayload hands a raw scrape payload to the loop. Safe to call
// from any goroutine.
func (w *Watcher) SubmitPayload(frameID string, cells []feed.Cell) bool {
	return w.inbox.Send(InboxMessage{Type: MsgPayload, Data: PayloadMsg{FrameID: frameID, Cells: cells}})
}

// CheckNow requests an immediate poll tick.
func (w *Watcher) CheckNow() bool {
	return w.inbox.Send(InboxMessage{Type: MsgCheckNow})
}

// SettingsChanged tells the loop to re-read runtime settings.
func (w *Watcher) SettingsChanged() bool {
	return w.inbox.Send(InboxMessage{Type: MsgSettingsChanged})
}

// Summary queries the loop for the current dashboard snapshot.
func (w *Watcher) Summary(ctx context.Context) (Summary, error) {
	resp := make(chan any, 1)
	if !w.inbox.Send(InboxMessage{Type: MsgGetSummary, ResponseChan: resp}) {
		return Summary{}, ErrShuttingDown
	}
	select {
	case v := <-resp:
		return v.(Summary), nil
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case <-w.done:
		return Summary{}, ErrShuttingDown
	}
}
