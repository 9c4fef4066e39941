package commons

import (
	"errors"
	"fmt"

	"github.com/burntcarrot/waypad/crdt"
	"github.com/burntcarrot/waypad/store"
)

var ErrDuplicateKey = errors.New("duplicate record key")

// Apply applies an insert, delete, or snapshot message to s. Other message
// types leave s untouched and report false.
//
// Records are checked before anything is written: a message carrying a
// position that no PositionSource could have issued is rejected as a whole.
func Apply(s *store.Store, msg Message) (bool, error) {
	switch msg.Type {
	case InsertMessage:
		if err := checkRecords(msg.Records); err != nil {
			return true, fmt.Errorf("failed to apply insert: %w", err)
		}
		if err := s.Put(msg.Records...); err != nil {
			return true, fmt.Errorf("failed to apply insert: %w", err)
		}
	case DeleteMessage:
		s.Delete(msg.Keys...)
	case SnapshotMessage:
		if err := checkRecords(msg.Records); err != nil {
			return true, fmt.Errorf("failed to apply snapshot: %w", err)
		}
		// Drop what the snapshot no longer has, then add what is new.
		keep := make(map[string]bool, len(msg.Records))
		for _, rec := range msg.Records {
			keep[rec.Key] = true
		}
		var stale []string
		for _, rec := range s.Records() {
			if !keep[rec.Key] {
				stale = append(stale, rec.Key)
			}
		}
		s.Delete(stale...)
		if err := s.Put(msg.Records...); err != nil {
			return true, fmt.Errorf("failed to apply snapshot: %w", err)
		}
	default:
		return false, nil
	}
	return true, nil
}

// checkRecords validates records received from another replica.
func checkRecords(recs []store.Record) error {
	keys := make(map[string]crdt.Position, len(recs))
	for _, rec := range recs {
		if err := crdt.ValidatePosition(rec.Position); err != nil {
			return err
		}
		if pos, ok := keys[rec.Key]; ok && pos != rec.Position {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.Key)
		}
		keys[rec.Key] = rec.Position
	}
	return nil
}
