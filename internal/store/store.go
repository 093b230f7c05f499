// Package store persists the watcher's durable state as a key-value
// table with JSON values, so every key stays independently readable by
// the UI surfaces that poll it.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkarvonen/orderwatch/internal/classify"
	"github.com/mkarvonen/orderwatch/internal/db"
	"github.com/mkarvonen/orderwatch/internal/feed"
	"github.com/mkarvonen/orderwatch/internal/history"
	"github.com/mkarvonen/orderwatch/internal/reconcile"
)

// Store provides typed access to the app_state table. The watcher is
// the only writer of count/watermark/history keys; settings keys are
// written by the API on behalf of the UI.
type Store struct {
	db *db.DB
}

func New(database *db.DB) *Store {
	return &Store{db: database}
}

// Get unmarshals the value under key into out. Returns db.ErrNotFound
// when the key has never been written.
func (s *Store) Get(key string, out any) error {
	var raw string
	query := s.db.Rebind(`SELECT value FROM app_state WHERE key = ?`)
	if err := s.db.QueryRow(query, key).Scan(&raw); err != nil {
		if db.IsNotFound(err) {
			return db.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("get %s: decode: %w", key, err)
	}
	return nil
}

// Set writes one key. Value is JSON-encoded.
func (s *Store) Set(key string, value any) error {
	return s.db.WithTransaction(func(tx *db.Tx) error {
		return setTx(tx, key, value, time.Now())
	})
}

// SetMany writes a batch of keys in one transaction, so readers never
// observe a half-applied reconciliation pass.
func (s *Store) SetMany(values map[string]any) error {
	now := time.Now()
	return s.db.WithTransaction(func(tx *db.Tx) error {
		for key, value := range values {
			if err := setTx(tx, key, value, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func setTx(tx *db.Tx, key string, value any, now time.Time) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("set %s: encode: %w", key, err)
	}
	query := tx.Rebind(`
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := tx.Exec(query, key, string(raw), now.UnixMilli()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) getInt(key string, fallback int) (int, error) {
	v := fallback
	if err := s.Get(key, &v); err != nil {
		if !db.IsNotFound(err) {
			return 0, err
		}
		return fallback, nil
	}
	return v, nil
}

// LoadState reads the persisted reconciliation state. Missing keys read
// as zero, which is the freshly-installed state.
func (s *Store) LoadState() (reconcile.State, error) {
	st := reconcile.State{}
	for key, field := range map[string]*int{
		KeyCollectCount:       &st.LastCollect,
		KeyWoltCount:          &st.LastWolt,
		KeyNotifiedCount:      &st.NotifiedCollect,
		KeyNotifiedWoltCount:  &st.NotifiedWolt,
		KeyConsecutiveCollect: &st.CollectZeros,
		KeyConsecutiveWolt:    &st.WoltZeros,
	} {
		if err := s.Get(key, field); err != nil && !db.IsNotFound(err) {
			return reconcile.State{}, err
		}
	}
	return st, nil
}

// SaveTick persists the outcome of one reconciliation pass atomically:
// counts, watermarks, debounce counters, connection health, the pending
// order list and, when notifications fired, the updated day history.
// A failed SaveTick leaves the stored watermarks where they were, so
// the next tick recomputes the same deltas.
func (s *Store) SaveTick(st reconcile.State, snap feed.Snapshot, log *history.Log, now time.Time) error {
	oldest := snap.CollectOldest
	if oldest == 0 {
		oldest = snap.WoltOldest
	}
	values := map[string]any{
		KeyCollectCount:         st.LastCollect,
		KeyWoltCount:            st.LastWolt,
		KeyNotifiedCount:        st.NotifiedCollect,
		KeyNotifiedWoltCount:    st.NotifiedWolt,
		KeyConsecutiveCollect:   st.CollectZeros,
		KeyConsecutiveWolt:      st.WoltZeros,
		KeyConnectionStatus:     StatusConnected,
		KeyLastError:            nil,
		KeyLastCheck:            now.UnixMilli(),
		KeyPendingOrders:        snap.WoltOrders,
		KeyOldestOrderTimestamp: oldest,
	}
	if log != nil {
		values[KeyShiftHistory] = *log
	}
	return s.SetMany(values)
}

// SetConnectionStatus records the outcome of an unsuccessful (or
// agentless) poll tick without touching any count.
func (s *Store) SetConnectionStatus(status, cause string, now time.Time) error {
	values := map[string]any{
		KeyConnectionStatus: status,
		KeyLastCheck:        now.UnixMilli(),
	}
	if cause == "" {
		values[KeyLastError] = nil
	} else {
		values[KeyLastError] = cause
	}
	return s.SetMany(values)
}

// History returns the shift history valid for now's calendar day,
// rolling over to a fresh log when the stored one is from a previous
// day.
func (s *Store) History(now time.Time) (history.Log, error) {
	var log history.Log
	if err := s.Get(KeyShiftHistory, &log); err != nil && !db.IsNotFound(err) {
		return history.Log{}, err
	}
	return log.ForDay(now), nil
}

// Vocabulary assembles the classification config from its individually
// editable keys, falling back to defaults for any key never written.
func (s *Store) Vocabulary() (classify.Config, error) {
	cfg := classify.DefaultConfig()
	for key, field := range map[string]*[]string{
		KeyCompletedStatuses: &cfg.CompletedStatuses,
		KeyCollectKeywords:   &cfg.CollectKeywords,
		KeyCollectCodes:      &cfg.CollectCodes,
		KeyShippingKeywords:  &cfg.ShippingKeywords,
		KeyWoltKeywords:      &cfg.WoltKeywords,
		KeyWoltCodes:         &cfg.WoltCodes,
	} {
		if err := s.Get(key, field); err != nil && !db.IsNotFound(err) {
			return classify.Config{}, err
		}
	}
	return cfg, nil
}

// PollIntervalSeconds returns the configured base poll interval,
// clamped to [5,60].
func (s *Store) PollIntervalSeconds() (int, error) {
	v, err := s.getInt(KeyPollIntervalSeconds, 30)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		v = 30
	}
	return clamp(5, 60, v), nil
}

// AlertDurationSeconds returns how long a dispatched alert stays up.
func (s *Store) AlertDurationSeconds() (int, error) {
	v, err := s.getInt(KeyAlertDurationSeconds, 15)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		v = 15
	}
	return v, nil
}

// SoundEnabled reports whether alert dispatch is enabled at all. The
// original surface gates the whole presentation on this toggle, not
// just audio.
func (s *Store) SoundEnabled() (bool, error) {
	v := true
	if err := s.Get(KeySoundEnabled, &v); err != nil && !db.IsNotFound(err) {
		return true, err
	}
	return v, nil
}

// RecordAlert appends a dispatched notification to the alert audit
// table.
func (s *Store) RecordAlert(n reconcile.Notification) error {
	query := s.db.Rebind(`
		INSERT INTO alert_events (id, channel, new_count, total_pending, fired_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.Exec(query, n.ID, n.ChannelName, n.NewCount, n.TotalPending, n.FiredAt); err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

// Seed writes the default settings once per database. Subsequent calls
// are no-ops, so user edits survive restarts.
func (s *Store) Seed(defaults map[string]any) error {
	initialized := false
	if err := s.Get(KeyConfigInitialized, &initialized); err != nil && !db.IsNotFound(err) {
		return err
	}
	if initialized {
		return nil
	}
	values := make(map[string]any, len(defaults)+1)
	for k, v := range defaults {
		values[k] = v
	}
	values[KeyConfigInitialized] = true
	return s.SetMany(values)
}

func clamp(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
