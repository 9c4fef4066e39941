package store

import (
	"errors"
	"testing"

	"github.com/burntcarrot/waypad/crdt"
	"github.com/google/go-cmp/cmp"
)

func TestPush(t *testing.T) {
	s := New()

	// Push out of order; the store keeps position order.
	for _, rec := range []struct {
		pos   crdt.Position
		value string
	}{
		{pos: "c", value: "t"},
		{pos: "a", value: "c"},
		{pos: "b", value: "a"},
	} {
		if _, err := s.Push(rec.pos, rec.value); err != nil {
			t.Fatalf("error: %v\n", err)
		}
	}

	snap := s.Snapshot()
	if got, expected := snap.Text(), "cat"; got != expected {
		t.Errorf("got = %v, expected = %v\n", got, expected)
	}

	expected := []crdt.Position{"a", "b", "c"}
	if !cmp.Equal(snap.Positions, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(snap.Positions, expected))
	}

	if len(snap.Keys) != 3 || snap.Keys[0] == "" || snap.Keys[0] == snap.Keys[1] {
		t.Errorf("expected three distinct keys, got %v", snap.Keys)
	}
}

func TestPut(t *testing.T) {
	s := New()
	recs := []Record{
		{Key: "k2", Position: "b", Value: "2"},
		{Key: "k1", Position: "a", Value: "1"},
	}

	if err := s.Put(recs...); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	// Replaying the same records is a no-op.
	if err := s.Put(recs...); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	got := s.Records()
	expected := []Record{
		{Key: "k1", Position: "a", Value: "1"},
		{Key: "k2", Position: "b", Value: "2"},
	}
	if !cmp.Equal(got, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(got, expected))
	}

	if err := s.Put(Record{Key: "k3", Position: "a", Value: "3"}); !errors.Is(err, ErrDuplicatePosition) {
		t.Errorf("got err = %v, expected ErrDuplicatePosition", err)
	}
	if err := s.Put(Record{Position: "z"}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("got err = %v, expected ErrEmptyKey", err)
	}
	if got, expected := s.Len(), 2; got != expected {
		t.Errorf("got = %v, expected = %v\n", got, expected)
	}
}

func TestPut_AllOrNothing(t *testing.T) {
	tests := []struct {
		description string
		batch       []Record
		err         error
	}{
		{
			description: "clashes with a stored position",
			batch: []Record{
				{Key: "k2", Position: "b", Value: "y"},
				{Key: "k3", Position: "a", Value: "z"},
			},
			err: ErrDuplicatePosition,
		},
		{
			description: "clashes within the batch",
			batch: []Record{
				{Key: "k2", Position: "b", Value: "y"},
				{Key: "k3", Position: "b", Value: "z"},
			},
			err: ErrDuplicatePosition,
		},
		{
			description: "empty key after a valid record",
			batch: []Record{
				{Key: "k2", Position: "b", Value: "y"},
				{Position: "c", Value: "z"},
			},
			err: ErrEmptyKey,
		},
	}

	for _, tc := range tests {
		s := New()
		_ = s.Put(Record{Key: "k1", Position: "a", Value: "x"})

		notified := 0
		cancel := s.Subscribe(func(Snapshot) { notified++ })

		if err := s.Put(tc.batch...); !errors.Is(err, tc.err) {
			t.Errorf("(%s) got err = %v, expected %v", tc.description, err, tc.err)
		}
		cancel()

		if got, expected := s.Snapshot().Text(), "x"; got != expected {
			t.Errorf("(%s) got = %v, expected = %v\n", tc.description, got, expected)
		}
		if notified != 1 {
			t.Errorf("(%s) subscribers notified %d times, expected only the initial call", tc.description, notified)
		}
	}
}

func TestPut_RepeatedKeyInBatch(t *testing.T) {
	s := New()
	rec := Record{Key: "k1", Position: "a", Value: "x"}

	if err := s.Put(rec, rec); err != nil {
		t.Fatalf("error: %v\n", err)
	}
	if got, expected := s.Len(), 1; got != expected {
		t.Errorf("got = %v, expected = %v\n", got, expected)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	_ = s.Put(
		Record{Key: "k1", Position: "a", Value: "1"},
		Record{Key: "k2", Position: "b", Value: "2"},
		Record{Key: "k3", Position: "c", Value: "3"},
	)

	s.Delete("k2", "unknown")

	if _, ok := s.Get("k2"); ok {
		t.Errorf("k2 should be deleted")
	}
	if got, expected := s.Snapshot().Text(), "13"; got != expected {
		t.Errorf("got = %v, expected = %v\n", got, expected)
	}

	// The freed position can be stored again under a new key.
	if err := s.Put(Record{Key: "k4", Position: "b", Value: "4"}); err != nil {
		t.Errorf("error: %v\n", err)
	}
}

func TestSubscribe(t *testing.T) {
	s := New()
	_ = s.Put(Record{Key: "k1", Position: "a", Value: "x"})

	var texts []string
	cancel := s.Subscribe(func(snap Snapshot) {
		texts = append(texts, snap.Text())
	})

	_ = s.Put(Record{Key: "k2", Position: "b", Value: "y"})
	s.Delete("unknown")
	s.Delete("k1")
	cancel()
	_ = s.Put(Record{Key: "k3", Position: "c", Value: "z"})

	expected := []string{"x", "xy", "y"}
	if !cmp.Equal(texts, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(texts, expected))
	}
}

// TestStore_PositionSource fills the store with positions from two replicas
// and checks that the snapshot stays sorted for the cursor functions.
func TestStore_PositionSource(t *testing.T) {
	a, _ := crdt.NewPositionSource(crdt.WithReplicaID("aaaaaaaaaa"))
	b, _ := crdt.NewPositionSource(crdt.WithReplicaID("bbbbbbbbbb"))
	s := New()

	left := crdt.First
	for _, r := range "hello" {
		left = a.CreateBetween(left, crdt.Last)
		if _, err := s.Push(left, string(r)); err != nil {
			t.Fatalf("error: %v\n", err)
		}
	}

	snap := s.Snapshot()
	p := b.CreateBetween(snap.Positions[0], snap.Positions[1])
	if _, err := s.Push(p, "E"); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	snap = s.Snapshot()
	if got, expected := snap.Text(), "hEello"; got != expected {
		t.Errorf("got = %v, expected = %v\n", got, expected)
	}
	if got, expected := crdt.IndexOf(snap.Positions, crdt.Cursor(p)), 2; got != expected {
		t.Errorf("got = %v, expected = %v\n", got, expected)
	}
}
