// Package crdt generates positions for list CRDTs: strings whose lexicographic
// order is the list order, such that replicas can mint new positions between
// any two existing ones without coordinating.
//
// The underlying dense total order is a tree of alternating layers. Even
// layers hold waypoints labelled (replicaID, counter); a waypoint may be a
// left or right child of its parent, except that the root only has right
// children. Odd layers hold value indices, always right children of their
// waypoint and drawn from the enumeration in LexSucc. A position is the path
// from the root to a value index node.
//
// Left-to-right insertions by one replica reuse a waypoint and only bump its
// value index, so a run of m such insertions grows positions by O(log m)
// characters instead of O(m). Positions are never garbage collected.
package crdt

// CRDT is a list of string values addressed by index.
type CRDT interface {
	Insert(index int, value string) (string, error)
	Delete(index int) string
}
