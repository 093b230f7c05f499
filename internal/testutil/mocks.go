package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mkarvonen/orderwatch/internal/alert"
	"github.com/mkarvonen/orderwatch/internal/classify"
	"github.com/mkarvonen/orderwatch/internal/feed"
	"github.com/mkarvonen/orderwatch/internal/history"
	"github.com/mkarvonen/orderwatch/internal/reconcile"
)

// SavedTick is one recorded SaveTick call.
type SavedTick struct {
	State    reconcile.State
	Snapshot feed.Snapshot
	Log      *history.Log
	At       time.Time
}

// MockStore provides an in-memory durable-state double for testing. It
// implements the watcher's Store interface.
type MockStore struct {
	mu sync.Mutex

	state         reconcile.State
	log           history.Log
	vocab         classify.Config
	pollInterval  int
	alertDuration int
	soundEnabled  bool

	loadError  error
	saveError  error
	savedTicks []SavedTick
	statuses   []string
	alerts     []reconcile.Notification
}

func NewMockStore() *MockStore {
	return &MockStore{
		vocab:         classify.DefaultConfig(),
		pollInterval:  30,
		alertDuration: 15,
		soundEnabled:  true,
	}
}

func (m *MockStore) SetState(st reconcile.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
}

func (m *MockStore) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

func (m *MockStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStore) SetPollInterval(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollInterval = seconds
}

func (m *MockStore) SetSoundEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.soundEnabled = enabled
}

func (m *MockStore) LoadState() (reconcile.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadError != nil {
		return reconcile.State{}, m.loadError
	}
	return m.state, nil
}

func (m *MockStore) SaveTick(st reconcile.State, snap feed.Snapshot, log *history.Log, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.state = st
	if log != nil {
		m.log = *log
	}
	m.savedTicks = append(m.savedTicks, SavedTick{State: st, Snapshot: snap, Log: log, At: now})
	return nil
}

func (m *MockStore) SetConnectionStatus(status, cause string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *MockStore) History(now time.Time) (history.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadError != nil {
		return history.Log{}, m.loadError
	}
	return m.log.ForDay(now), nil
}

func (m *MockStore) Vocabulary() (classify.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vocab, nil
}

func (m *MockStore) PollIntervalSeconds() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadError != nil {
		return 0, m.loadError
	}
	return m.pollInterval, nil
}

func (m *MockStore) AlertDurationSeconds() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alertDuration, nil
}

func (m *MockStore) SoundEnabled() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.soundEnabled, nil
}

func (m *MockStore) RecordAlert(n reconcile.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, n)
	return nil
}

func (m *MockStore) SavedTicks() []SavedTick {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]SavedTick, len(m.savedTicks))
	copy(result, m.savedTicks)
	return result
}

func (m *MockStore) Statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.statuses))
	copy(result, m.statuses)
	return result
}

func (m *MockStore) RecordedAlerts() []reconcile.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]reconcile.Notification, len(m.alerts))
	copy(result, m.alerts)
	return result
}

func (m *MockStore) State() reconcile.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// MockBridge is a controllable stand-in for the agent hub. It implements
// the watcher's Bridge interface.
type MockBridge struct {
	mu sync.Mutex

	contexts     []string
	triggerError error
	// failuresBeforeSuccess makes the first N TriggerCheck calls fail,
	// exercising the re-inject-then-retry path.
	failuresBeforeSuccess int
	reinjectError         error

	triggerCalls  int
	reinjectCalls int
}

func NewMockBridge(contexts ...string) *MockBridge {
	return &MockBridge{contexts: contexts}
}

func (m *MockBridge) SetContexts(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts = ids
}

func (m *MockBridge) SetTriggerError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggerError = err
}

func (m *MockBridge) SetReinjectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reinjectError = err
}

func (m *MockBridge) FailTriggersBeforeSuccess(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failuresBeforeSuccess = n
}

func (m *MockBridge) Contexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.contexts))
	copy(result, m.contexts)
	return result
}

func (m *MockBridge) TriggerCheck(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggerCalls++
	if m.failuresBeforeSuccess > 0 {
		m.failuresBeforeSuccess--
		return fmt.Errorf("trigger failed for %s", id)
	}
	return m.triggerError
}

func (m *MockBridge) Reinject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reinjectCalls++
	return m.reinjectError
}

func (m *MockBridge) TriggerCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggerCalls
}

func (m *MockBridge) ReinjectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reinjectCalls
}

// MockRenderer records presented and cleared alerts for testing.
type MockRenderer struct {
	mu sync.Mutex

	presentError error
	presented    []alert.Alert
	cleared      []string
}

func NewMockRenderer() *MockRenderer {
	return &MockRenderer{}
}

func (m *MockRenderer) SetPresentError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presentError = err
}

func (m *MockRenderer) Present(_ context.Context, a alert.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presentError != nil {
		return m.presentError
	}
	m.presented = append(m.presented, a)
	return nil
}

func (m *MockRenderer) Clear(_ context.Context, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, alertID)
	return nil
}

func (m *MockRenderer) Presented() []alert.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]alert.Alert, len(m.presented))
	copy(result, m.presented)
	return result
}

func (m *MockRenderer) Cleared() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.cleared))
	copy(result, m.cleared)
	return result
}

// MockClock provides controllable time for testing
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{
		current: start,
	}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// TestLogger provides a logger that captures logs for testing
type TestLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

func NewTestLogger() *TestLogger {
	return &TestLogger{
		entries: make([]LogEntry, 0),
	}
}

func (l *TestLogger) log(level, msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Level:   level,
		Message: msg,
		Fields:  make(map[string]interface{}),
	}

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key := fmt.Sprintf("%v", fields[i])
			entry.Fields[key] = fields[i+1]
		}
	}

	l.entries = append(l.entries, entry)
}

func (l *TestLogger) GetEntries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]LogEntry, len(l.entries))
	copy(result, l.entries)
	return result
}

func (l *TestLogger) GetEntriesByLevel(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]LogEntry, 0)
	for _, entry := range l.entries {
		if entry.Level == level {
			result = append(result, entry)
		}
	}
	return result
}

func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]LogEntry, 0)
}

func (l *TestLogger) HasError() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range l.entries {
		if entry.Level == "ERROR" {
			return true
		}
	}
	return false
}

func (l *TestLogger) HasWarning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range l.entries {
		if entry.Level == "WARN" {
			return true
		}
	}
	return false
}

// Logger returns a *slog.Logger that writes to this TestLogger
func (l *TestLogger) Logger() *slog.Logger {
	return slog.New(&testLogHandler{logger: l})
}

// testLogHandler implements slog.Handler for TestLogger
type testLogHandler struct {
	logger *TestLogger
	attrs  []slog.Attr
	groups []string
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()
	msg := r.Message

	// Collect all attributes
	fields := make([]interface{}, 0, r.NumAttrs()*2)
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, a.Key, a.Value.Any())
		return true
	})

	// Add handler-level attributes
	for _, attr := range h.attrs {
		fields = append(fields, attr.Key, attr.Value.Any())
	}

	h.logger.log(level, msg, fields...)
	return nil
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &testLogHandler{
		logger: h.logger,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *testLogHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name
	return &testLogHandler{
		logger: h.logger,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// WaitFor waits for a condition to be true with timeout
func WaitFor(t TestingT, condition func() bool, timeout time.Duration, msgAndArgs ...interface{}) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}

		select {
		case <-ticker.C:
			if time.Now().After(deadline) {
				t.Errorf("timeout waiting for condition: %v", msgAndArgs)
				return false
			}
		}
	}
}

// TestingT is a minimal interface for testing
type TestingT interface {
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}
