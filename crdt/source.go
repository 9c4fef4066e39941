package crdt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// replicaIDLength is the fixed length of every replica ID.
	replicaIDLength = 10

	// replicaIDAlphabet excludes the structural characters (',', 'L', 'R',
	// '~') and anything the store rejects in keys.
	replicaIDAlphabet = "0123456789ABCDEFGHIJKMNOPQSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var (
	ErrInvalidReplicaID = errors.New("invalid replica ID")
	ErrInvalidPosition  = errors.New("invalid position")
)

// PositionSource mints positions for a single replica.
//
// A position source is not safe for concurrent use; each replica (process,
// session, or tab) owns exactly one.
type PositionSource struct {
	replicaID string

	// lastValueIndices maps counter to the most recently issued value index
	// for the waypoint (replicaID, counter).
	lastValueIndices []uint64
}

// Option configures a PositionSource.
type Option func(*options)

type options struct {
	replicaID string
	rand      io.Reader
}

// WithReplicaID fixes the replica ID instead of drawing a random one.
func WithReplicaID(id string) Option {
	return func(o *options) {
		o.replicaID = id
	}
}

// WithRand sets the randomness used to draw the replica ID.
func WithRand(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

// NewPositionSource returns a position source with a fresh replica ID.
func NewPositionSource(opts ...Option) (*PositionSource, error) {
	o := options{rand: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}

	id := o.replicaID
	if id == "" {
		var err error
		id, err = randomReplicaID(o.rand)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidateReplicaID(id); err != nil {
		return nil, err
	}

	return &PositionSource{replicaID: id}, nil
}

// ValidateReplicaID reports whether id can be embedded in positions.
func ValidateReplicaID(id string) error {
	if len(id) != replicaIDLength {
		return fmt.Errorf("%w: %q must be %d characters long", ErrInvalidReplicaID, id, replicaIDLength)
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(replicaIDAlphabet, id[i]) < 0 {
			return fmt.Errorf("%w: %q contains reserved character %q", ErrInvalidReplicaID, id, id[i])
		}
	}
	return nil
}

// randomReplicaID draws bytes from r until it has replicaIDLength unbiased
// characters. Bytes at or above the largest multiple of the alphabet size are
// discarded.
func randomReplicaID(r io.Reader) (string, error) {
	limit := 256 - 256%len(replicaIDAlphabet)

	id := make([]byte, 0, replicaIDLength)
	buf := make([]byte, replicaIDLength)
	for len(id) < replicaIDLength {
		if _, err := io.ReadFull(r, buf[:replicaIDLength-len(id)]); err != nil {
			return "", fmt.Errorf("failed to draw replica ID: %w", err)
		}
		for _, b := range buf[:replicaIDLength-len(id)] {
			if int(b) < limit {
				id = append(id, replicaIDAlphabet[int(b)%len(replicaIDAlphabet)])
			}
		}
	}
	return string(id), nil
}

// ReplicaID returns the ID embedded in every waypoint this source creates.
func (s *PositionSource) ReplicaID() string {
	return s.replicaID
}

// CreateBetween returns a new position p with left < p < right. Pass First
// and Last for an unbounded side.
//
// The result is unique across all replicas. Left-to-right runs of calls (each
// call's left being the previous result) reuse the same waypoint, so their
// positions grow logarithmically in length.
//
// CreateBetween panics if left is Last, right is First, or left >= right.
func (s *PositionSource) CreateBetween(left, right Position) Position {
	if left == Last {
		panic("crdt: left must not be Last")
	}
	if right == First {
		panic("crdt: right must not be First")
	}
	if left >= right {
		panic(fmt.Sprintf("crdt: left %q must be less than right %q", left, right))
	}

	var p Position
	switch {
	case right != Last && strings.HasPrefix(string(right), string(left)):
		// Left child of right. left == First is a prefix of everything.
		p = right[:len(right)-1] + "L" + s.newWaypointNode()
	case left == First:
		p = s.newWaypointNode()
	default:
		// Right child of left, reusing left's waypoint when we are the
		// last writer to it.
		var ok bool
		if p, ok = s.extendWaypoint(left); !ok {
			p = left + s.newWaypointNode()
		}
	}

	if !(left < p && p < right) {
		panic(fmt.Sprintf("crdt: bad position %q between %q and %q", p, left, right))
	}
	return p
}

// extendWaypoint replaces left's trailing value index with its successor, if
// left's leaf waypoint is ours and nothing has been issued under it since.
func (s *PositionSource) extendWaypoint(left Position) (Position, bool) {
	n, ok := ParseNode(left)
	if !ok || n.ReplicaID != s.replicaID {
		return "", false
	}
	if n.Counter >= len(s.lastValueIndices) || s.lastValueIndices[n.Counter] != n.ValueIndex {
		return "", false
	}

	n.ValueIndex = LexSucc(n.ValueIndex)
	s.lastValueIndices[n.Counter] = n.ValueIndex

	lastComma := strings.LastIndexByte(string(left), ',')
	return left[:lastComma+1] + Position(strconv.FormatUint(n.ValueIndex, 10)) + "R", true
}

// newWaypointNode returns the node-pair of a fresh waypoint with value
// index 0.
func (s *PositionSource) newWaypointNode() Position {
	counter := len(s.lastValueIndices)
	s.lastValueIndices = append(s.lastValueIndices, 0)
	return Position(Node{ReplicaID: s.replicaID, Counter: counter, Dir: dirRight}.String())
}
