// Package store keeps list records ordered by position, standing in for the
// realtime database that collaborating replicas write to.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/burntcarrot/waypad/crdt"
	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

var (
	ErrDuplicatePosition = errors.New("position already stored under another key")
	ErrEmptyKey          = errors.New("empty record key")
)

// Record is one list element.
type Record struct {
	Key      string        `json:"key"`
	Position crdt.Position `json:"pos"`
	Value    string        `json:"data"`
}

// Snapshot is the list at one point in time, as parallel slices sorted by
// position.
type Snapshot struct {
	Positions []crdt.Position
	Keys      []string
	Values    []string
}

// Text returns the concatenated values.
func (s Snapshot) Text() string {
	return strings.Join(s.Values, "")
}

// Store is an ordered collection of records, safe for concurrent use.
// Records are only ever added or removed; a stored position never changes.
type Store struct {
	mu sync.Mutex

	items *btree.BTreeG[Record]
	hint  btree.PathHint
	byKey map[string]Record

	nextSub     int
	subscribers map[int]func(Snapshot)
}

// New returns an empty store.
func New() *Store {
	return &Store{
		items: btree.NewBTreeGOptions(
			func(a, b Record) bool {
				return a.Position < b.Position
			},
			btree.Options{
				NoLocks: true,
				Degree:  8,
			},
		),
		byKey:       make(map[string]Record),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// NewRecord returns a record for value at pos under a fresh key.
func NewRecord(pos crdt.Position, value string) Record {
	return Record{Key: uuid.NewString(), Position: pos, Value: value}
}

// Push stores value at pos under a fresh key and returns the new record.
func (s *Store) Push(pos crdt.Position, value string) (Record, error) {
	rec := NewRecord(pos, value)
	if err := s.Put(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Put stores records minted elsewhere. Records whose key is already present
// are skipped, so applying the same records twice is harmless.
//
// Put is all or nothing: if any record has an empty key, or a position held by
// another key in the store or in the same batch, nothing is stored.
func (s *Store) Put(recs ...Record) error {
	s.mu.Lock()

	fresh, err := s.freshLocked(recs)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	for _, rec := range fresh {
		s.items.SetHint(rec, &s.hint)
		s.byKey[rec.Key] = rec
	}

	s.notifyLocked(len(fresh) > 0)
	return nil
}

// freshLocked returns the records of recs that are not stored yet, or an error
// if any of them cannot be stored.
func (s *Store) freshLocked(recs []Record) ([]Record, error) {
	fresh := make([]Record, 0, len(recs))
	keys := make(map[string]bool, len(recs))
	positions := make(map[crdt.Position]string, len(recs))

	for _, rec := range recs {
		if rec.Key == "" {
			return nil, ErrEmptyKey
		}
		if _, ok := s.byKey[rec.Key]; ok || keys[rec.Key] {
			continue
		}
		if existing, ok := s.items.GetHint(rec, &s.hint); ok {
			return nil, fmt.Errorf("%w: %q (key %s)", ErrDuplicatePosition, rec.Position, existing.Key)
		}
		if key, ok := positions[rec.Position]; ok {
			return nil, fmt.Errorf("%w: %q (key %s)", ErrDuplicatePosition, rec.Position, key)
		}

		keys[rec.Key] = true
		positions[rec.Position] = rec.Key
		fresh = append(fresh, rec)
	}
	return fresh, nil
}

// Delete removes the records at keys. Unknown keys are ignored.
func (s *Store) Delete(keys ...string) {
	s.mu.Lock()

	changed := false
	for _, key := range keys {
		rec, ok := s.byKey[key]
		if !ok {
			continue
		}
		s.items.Delete(rec)
		delete(s.byKey, key)
		changed = true
	}

	s.notifyLocked(changed)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.items.Len()
}

// Get returns the record stored under key.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byKey[key]
	return rec, ok
}

// Records returns all records sorted by position.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]Record, 0, s.items.Len())
	s.items.Scan(func(rec Record) bool {
		recs = append(recs, rec)
		return true
	})
	return recs
}

// Snapshot returns the current list.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Subscribe calls fn with the current snapshot, and again after every change
// until cancel is called. fn runs on the goroutine that made the change and
// must not call back into the store.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	n := s.items.Len()
	snap := Snapshot{
		Positions: make([]crdt.Position, 0, n),
		Keys:      make([]string, 0, n),
		Values:    make([]string, 0, n),
	}
	s.items.Scan(func(rec Record) bool {
		snap.Positions = append(snap.Positions, rec.Position)
		snap.Keys = append(snap.Keys, rec.Key)
		snap.Values = append(snap.Values, rec.Value)
		return true
	})
	return snap
}

// notifyLocked releases s.mu and, if changed, delivers a fresh snapshot to
// every subscriber.
func (s *Store) notifyLocked(changed bool) {
	if !changed || len(s.subscribers) == 0 {
		s.mu.Unlock()
		return
	}

	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
