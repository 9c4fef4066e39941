package crdt

import (
	"fmt"
	"strconv"
	"strings"
)

// Position identifies an element's place in a list. Positions are ordered by
// plain string comparison and are never rewritten once issued.
type Position string

// Cursor points to a gap between two list elements. Internally it is the
// position of the element directly to its left when it was created.
type Cursor string

const (
	// First is less than every other position.
	First Position = ""

	// Last is greater than every other position.
	Last Position = "~"
)

// Direction markers closing each node-pair of an encoded position.
const (
	dirLeft  = 'L'
	dirRight = 'R'
)

// Node is the trailing node-pair of a position: a waypoint (ReplicaID, Counter)
// followed by one of its value indices.
//
// A position is rendered as a sequence of node-pairs, each written as
//
//	{replicaID},{counter},{valueIndex}{L|R}
//
// where the final marker is L when the next node-pair is a left child and R
// otherwise (including for the last node-pair, so that a node sorts between
// its left and right descendants).
type Node struct {
	ReplicaID  string
	Counter    int
	ValueIndex uint64
	Dir        byte
}

// String renders the node-pair.
func (n Node) String() string {
	var b strings.Builder
	b.WriteString(n.ReplicaID)
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(n.Counter))
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(n.ValueIndex, 10))
	b.WriteByte(n.Dir)
	return b.String()
}

// ParseNode decodes the trailing node-pair of p. Replica IDs have a fixed
// length, so the sender is recovered by slicing that many bytes in front of the
// second-to-last comma; the byte before it must start the string or be a
// direction marker.
func ParseNode(p Position) (Node, bool) {
	s := string(p)
	if len(s) < replicaIDLength+5 {
		return Node{}, false
	}

	dir := s[len(s)-1]
	if dir != dirLeft && dir != dirRight {
		return Node{}, false
	}

	lastComma := strings.LastIndexByte(s, ',')
	if lastComma <= 0 {
		return Node{}, false
	}
	secondLastComma := strings.LastIndexByte(s[:lastComma], ',')
	if secondLastComma < replicaIDLength {
		return Node{}, false
	}

	start := secondLastComma - replicaIDLength
	if start > 0 && s[start-1] != dirLeft && s[start-1] != dirRight {
		return Node{}, false
	}

	counter, err := strconv.Atoi(s[secondLastComma+1 : lastComma])
	if err != nil || counter < 0 {
		return Node{}, false
	}
	valueIndex, err := strconv.ParseUint(s[lastComma+1:len(s)-1], 10, 64)
	if err != nil {
		return Node{}, false
	}

	return Node{
		ReplicaID:  s[start:secondLastComma],
		Counter:    counter,
		ValueIndex: valueIndex,
		Dir:        dir,
	}, true
}

// ValidatePosition reports whether p could have been issued by a
// PositionSource: a non-empty sequence of well-formed node-pairs whose replica
// IDs pass ValidateReplicaID, ending in a right marker, and strictly between
// First and Last.
func ValidatePosition(p Position) error {
	if p <= First || p >= Last {
		return fmt.Errorf("%w: %q is not between First and Last", ErrInvalidPosition, p)
	}

	s := string(p)
	for len(s) > 0 {
		if len(s) < replicaIDLength+5 || s[replicaIDLength] != ',' {
			return fmt.Errorf("%w: %q has a truncated node", ErrInvalidPosition, p)
		}
		if err := ValidateReplicaID(s[:replicaIDLength]); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidPosition, p, err)
		}
		s = s[replicaIDLength+1:]

		comma := strings.IndexByte(s, ',')
		if comma < 0 || !isNumeral(s[:comma]) {
			return fmt.Errorf("%w: %q has a malformed counter", ErrInvalidPosition, p)
		}
		if _, err := strconv.Atoi(s[:comma]); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidPosition, p, err)
		}
		s = s[comma+1:]

		end := strings.IndexAny(s, "LR")
		if end < 0 || !isNumeral(s[:end]) {
			return fmt.Errorf("%w: %q has a malformed value index", ErrInvalidPosition, p)
		}
		if _, err := strconv.ParseUint(s[:end], 10, 64); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidPosition, p, err)
		}
		if end == len(s)-1 && s[end] != dirRight {
			return fmt.Errorf("%w: %q must end with %q", ErrInvalidPosition, p, dirRight)
		}
		s = s[end+1:]
	}
	return nil
}

// isNumeral reports whether s is a decimal number without leading zeros, as
// written by strconv.
func isNumeral(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
