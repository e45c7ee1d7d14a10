// Package prefs persists user configuration: the block and whitelist
// rule lists, their per-rule toggle maps, and the settings struct.
// Values are stored as JSON in bbolt buckets. Every successful write
// publishes a full snapshot to subscribers; consumers rebuild their
// state wholesale from it, never by merging.
package prefs

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"

	"focusgate/internal/focus/domain"
)

var (
	bucketRules    = []byte("rules")
	bucketToggles  = []byte("toggles")
	bucketSettings = []byte("settings")
)

var (
	keyBlock     = []byte("block")
	keyWhitelist = []byte("whitelist")
	keyCurrent   = []byte("current")
)

// Snapshot is the complete persisted configuration at one point in time.
type Snapshot struct {
	Settings         domain.Settings
	BlockRules       []string
	WhitelistRules   []string
	BlockToggles     map[string]bool
	WhitelistToggles map[string]bool
}

// Store implements the configuration store using bbolt.
type Store struct {
	db *bbolt.DB

	mu   sync.Mutex
	subs []func(Snapshot)
}

// New opens (or creates) the prefs database at path and ensures buckets exist.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		return ensureBucketsFn(tx)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// bucketCreator is the subset of bbolt.Tx needed to ensure buckets exist.
type bucketCreator interface {
	CreateBucketIfNotExists(name []byte) (*bbolt.Bucket, error)
}

// ensureBucketsFn is swappable in tests to exercise creation failures.
var ensureBucketsFn = ensureBuckets

func ensureBuckets(tx bucketCreator) error {
	for _, name := range [][]byte{bucketRules, bucketToggles, bucketSettings} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Subscribe registers fn to receive the full configuration after every
// successful write. Callbacks run synchronously on the writer's goroutine.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Load returns the persisted configuration. Missing values fall back to
// defaults: default settings, empty rule lists, empty toggle maps.
func (s *Store) Load() (Snapshot, error) {
	snap := emptySnapshot()
	err := s.db.View(func(tx *bbolt.Tx) error {
		return readSnapshot(tx, &snap)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// SaveSettings validates and persists a new settings struct. Invalid
// settings are rejected without touching the store.
func (s *Store) SaveSettings(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return s.mutate(func(tx *bbolt.Tx) (bool, error) {
		data, err := json.Marshal(settings)
		if err != nil {
			return false, err
		}
		return true, tx.Bucket(bucketSettings).Put(keyCurrent, data)
	})
}

// SaveBlockRules replaces the block list wholesale. Rules are trimmed,
// lower-cased, and de-duplicated; toggles for rules no longer present
// are dropped in the same transaction.
func (s *Store) SaveBlockRules(rules []string) error {
	return s.saveRules(keyBlock, rules)
}

// SaveWhitelistRules replaces the whitelist wholesale.
func (s *Store) SaveWhitelistRules(rules []string) error {
	return s.saveRules(keyWhitelist, rules)
}

// SaveBlockToggles replaces the block-rule enabled states wholesale.
func (s *Store) SaveBlockToggles(toggles map[string]bool) error {
	return s.saveToggles(keyBlock, toggles)
}

// SaveWhitelistToggles replaces the whitelist enabled states wholesale.
func (s *Store) SaveWhitelistToggles(toggles map[string]bool) error {
	return s.saveToggles(keyWhitelist, toggles)
}

// AddBlockRule appends one rule to the block list. Adding a rule that is
// already present is a no-op and publishes nothing.
func (s *Store) AddBlockRule(pattern string) error {
	return s.addRule(keyBlock, pattern)
}

// AddWhitelistRule appends one rule to the whitelist.
func (s *Store) AddWhitelistRule(pattern string) error {
	return s.addRule(keyWhitelist, pattern)
}

// RemoveBlockRule removes one rule and its toggle from the block list.
func (s *Store) RemoveBlockRule(pattern string) error {
	return s.removeRule(keyBlock, pattern)
}

// RemoveWhitelistRule removes one rule and its toggle from the whitelist.
func (s *Store) RemoveWhitelistRule(pattern string) error {
	return s.removeRule(keyWhitelist, pattern)
}

// ToggleBlockRule flips one block rule's enabled state without touching
// the list itself.
func (s *Store) ToggleBlockRule(pattern string, enabled bool) error {
	return s.toggleRule(keyBlock, pattern, enabled)
}

// ToggleWhitelistRule flips one whitelist rule's enabled state.
func (s *Store) ToggleWhitelistRule(pattern string, enabled bool) error {
	return s.toggleRule(keyWhitelist, pattern, enabled)
}

// mutate runs fn in a write transaction. When fn reports a change, the
// post-write snapshot is read inside the same transaction and published
// to subscribers after commit.
func (s *Store) mutate(fn func(tx *bbolt.Tx) (bool, error)) error {
	var snap Snapshot
	var changed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		c, err := fn(tx)
		if err != nil {
			return err
		}
		changed = c
		if !changed {
			return nil
		}
		snap = emptySnapshot()
		return readSnapshot(tx, &snap)
	})
	if err != nil {
		return err
	}
	if changed {
		s.publish(snap)
	}
	return nil
}

func (s *Store) saveRules(key []byte, rules []string) error {
	clean := normalizeRules(rules)
	return s.mutate(func(tx *bbolt.Tx) (bool, error) {
		data, err := json.Marshal(clean)
		if err != nil {
			return false, err
		}
		if err := tx.Bucket(bucketRules).Put(key, data); err != nil {
			return false, err
		}
		return true, pruneToggles(tx, key, clean)
	})
}

func (s *Store) saveToggles(key []byte, toggles map[string]bool) error {
	clean := make(map[string]bool, len(toggles))
	for pattern, enabled := range toggles {
		clean[strings.ToLower(strings.TrimSpace(pattern))] = enabled
	}
	return s.mutate(func(tx *bbolt.Tx) (bool, error) {
		data, err := json.Marshal(clean)
		if err != nil {
			return false, err
		}
		return true, tx.Bucket(bucketToggles).Put(key, data)
	})
}

func (s *Store) addRule(key []byte, pattern string) error {
	rule := domain.ParseRule(pattern)
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule %q: %w", pattern, err)
	}
	return s.mutate(func(tx *bbolt.Tx) (bool, error) {
		list, err := readRules(tx, key)
		if err != nil {
			return false, err
		}
		for _, existing := range list {
			if existing == rule.Raw {
				return false, nil
			}
		}
		list = append(list, rule.Raw)
		data, err := json.Marshal(list)
		if err != nil {
			return false, err
		}
		return true, tx.Bucket(bucketRules).Put(key, data)
	})
}

func (s *Store) removeRule(key []byte, pattern string) error {
	needle := strings.ToLower(strings.TrimSpace(pattern))
	return s.mutate(func(tx *bbolt.Tx) (bool, error) {
		list, err := readRules(tx, key)
		if err != nil {
			return false, err
		}
		kept := list[:0]
		for _, existing := range list {
			if existing != needle {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(list) {
			return false, nil
		}
		data, err := json.Marshal(kept)
		if err != nil {
			return false, err
		}
		if err := tx.Bucket(bucketRules).Put(key, data); err != nil {
			return false, err
		}
		return true, pruneToggles(tx, key, kept)
	})
}

func (s *Store) toggleRule(key []byte, pattern string, enabled bool) error {
	needle := strings.ToLower(strings.TrimSpace(pattern))
	if needle == "" {
		return fmt.Errorf("invalid rule %q: empty pattern", pattern)
	}
	return s.mutate(func(tx *bbolt.Tx) (bool, error) {
		toggles, err := readToggles(tx, key)
		if err != nil {
			return false, err
		}
		toggles[needle] = enabled
		data, err := json.Marshal(toggles)
		if err != nil {
			return false, err
		}
		return true, tx.Bucket(bucketToggles).Put(key, data)
	})
}

func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	subs := make([]func(Snapshot), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Settings:         domain.DefaultSettings(),
		BlockToggles:     map[string]bool{},
		WhitelistToggles: map[string]bool{},
	}
}

func readSnapshot(tx *bbolt.Tx, snap *Snapshot) error {
	if b := tx.Bucket(bucketSettings); b != nil {
		if v := b.Get(keyCurrent); v != nil {
			if err := json.Unmarshal(v, &snap.Settings); err != nil {
				return fmt.Errorf("decode settings: %w", err)
			}
		}
	}
	var err error
	if snap.BlockRules, err = readRules(tx, keyBlock); err != nil {
		return err
	}
	if snap.WhitelistRules, err = readRules(tx, keyWhitelist); err != nil {
		return err
	}
	if snap.BlockToggles, err = readToggles(tx, keyBlock); err != nil {
		return err
	}
	if snap.WhitelistToggles, err = readToggles(tx, keyWhitelist); err != nil {
		return err
	}
	return nil
}

func readRules(tx *bbolt.Tx, key []byte) ([]string, error) {
	b := tx.Bucket(bucketRules)
	if b == nil {
		return nil, nil
	}
	v := b.Get(key)
	if v == nil {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(v, &list); err != nil {
		return nil, fmt.Errorf("decode %s rules: %w", key, err)
	}
	return list, nil
}

func readToggles(tx *bbolt.Tx, key []byte) (map[string]bool, error) {
	toggles := map[string]bool{}
	b := tx.Bucket(bucketToggles)
	if b == nil {
		return toggles, nil
	}
	v := b.Get(key)
	if v == nil {
		return toggles, nil
	}
	if err := json.Unmarshal(v, &toggles); err != nil {
		return nil, fmt.Errorf("decode %s toggles: %w", key, err)
	}
	return toggles, nil
}

// pruneToggles drops toggle entries for rules no longer in the list, so
// stale states cannot resurrect when a rule is re-added later.
func pruneToggles(tx *bbolt.Tx, key []byte, rules []string) error {
	toggles, err := readToggles(tx, key)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		present[r] = struct{}{}
	}
	kept := make(map[string]bool, len(toggles))
	for pattern, enabled := range toggles {
		if _, ok := present[pattern]; ok {
			kept[pattern] = enabled
		}
	}
	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketToggles).Put(key, data)
}

// normalizeRules trims, lower-cases, and de-duplicates while preserving
// first-seen order. Empty entries are dropped.
func normalizeRules(rules []string) []string {
	seen := make(map[string]struct{}, len(rules))
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
