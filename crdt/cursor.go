package crdt

import "fmt"

// CursorAt returns a cursor for the gap directly to the left of
// positions[index]. Index 0 is the start of the list.
func CursorAt(positions []Position, index int) Cursor {
	if index < 0 || index > len(positions) {
		panic(fmt.Sprintf("crdt: cursor index %d out of range [0, %d]", index, len(positions)))
	}
	if index == 0 {
		return Cursor(First)
	}
	return Cursor(positions[index-1])
}

// IndexOf returns the current index of c in positions, i.e. the index directly
// to the right of the greatest position <= c. If that element has since been
// deleted, the cursor falls back to the next lesser surviving element.
//
// positions must be strictly ascending. IndexOf only checks the neighbours of
// the element it lands on and panics if they are out of order; use Sorted to
// check a whole snapshot once.
func IndexOf(positions []Position, c Cursor) int {
	pos := Position(c)
	if len(positions) == 0 || pos < positions[0] {
		return 0
	}

	// [start, end] is the range of candidates for the greatest position <= pos.
	start, end := 0, len(positions)-1
	for start != end {
		// Round up so that start always advances.
		mid := start + (end-start+1)/2
		if positions[mid] <= pos {
			start = mid
		} else {
			end = mid - 1
		}
	}

	if start > 0 && positions[start-1] >= positions[start] {
		panic(fmt.Sprintf("crdt: positions not strictly ascending at index %d: %q >= %q", start, positions[start-1], positions[start]))
	}
	if start+1 < len(positions) && positions[start] >= positions[start+1] {
		panic(fmt.Sprintf("crdt: positions not strictly ascending at index %d: %q >= %q", start+1, positions[start], positions[start+1]))
	}

	// positions[start] <= pos < positions[start+1]; the cursor sits right of start.
	return start + 1
}

// Sorted reports whether positions is strictly ascending.
func Sorted(positions []Position) bool {
	for i := 1; i < len(positions); i++ {
		if positions[i-1] >= positions[i] {
			return false
		}
	}
	return true
}
