// Package history persists finished timer sessions in bbolt. Keys are
// ordered by session end time so range listing, daily aggregation, and
// retention pruning are single cursor scans.
package history

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"focusgate/internal/focus/domain"
	"focusgate/internal/focus/services/timer"
)

var bucketSessions = []byte("sessions")

// Store implements the session history using bbolt.
type Store struct {
	db *bbolt.DB
}

var _ timer.Recorder = (*Store)(nil)

// New opens (or creates) the history database at path and ensures the
// sessions bucket exists.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Append persists one finished session.
func (s *Store) Append(sess domain.Session) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Put(sessionKey(sess.EndedAt, sess.ID), data)
	})
}

// List returns sessions that ended in [from, to), oldest first.
func (s *Store) List(from, to time.Time) ([]domain.Session, error) {
	var out []domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		min := sessionKey(from, "")
		max := sessionKey(to, "")
		for k, v := c.Seek(min); k != nil && bytes.Compare(k, max) < 0; k, v = c.Next() {
			var sess domain.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
			out = append(out, sess)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Recent returns up to n sessions, newest first.
func (s *Store) Recent(n int) ([]domain.Session, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var sess domain.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
			out = append(out, sess)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DailyStats folds sessions that ended in [from, to) into per-day
// aggregates, oldest day first.
func (s *Store) DailyStats(from, to time.Time) ([]domain.DayStats, error) {
	sessions, err := s.List(from, to)
	if err != nil {
		return nil, err
	}
	var out []domain.DayStats
	index := make(map[string]int)
	for _, sess := range sessions {
		i, ok := index[sess.Date]
		if !ok {
			out = append(out, domain.DayStats{Date: sess.Date})
			i = len(out) - 1
			index[sess.Date] = i
		}
		out[i].Add(sess)
	}
	return out, nil
}

// Prune deletes sessions that ended before the cutoff and returns how
// many were removed. Deleting nothing is not an error.
func (s *Store) Prune(before time.Time) (int, error) {
	var deleted int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b == nil {
			return nil
		}
		max := sessionKey(before, "")
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, max) < 0; k, _ = c.Next() {
			key := make([]byte, len(k))
			copy(key, k)
			stale = append(stale, key)
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Count returns the number of stored sessions.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketSessions); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// sessionKey orders records by end time. The ID suffix keeps keys unique
// when two sessions end in the same nanosecond.
func sessionKey(end time.Time, id string) []byte {
	key := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(end.UnixNano()))
	return append(key, id...)
}
