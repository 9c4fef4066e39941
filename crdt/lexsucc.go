package crdt

// LexSucc returns the value index issued after n.
//
// The enumeration starts at 0 and lists 9^(d-1) numbers of d digits for every
// d >= 1: 0, then 10..18, then 190..270, then 2710..3438, and so on. No
// number's decimal form is a prefix of another's, and the lexicographic order
// of the decimal forms matches the order by magnitude. The k-th number has
// O(log k) digits.
func LexSucc(n uint64) uint64 {
	d := 1
	pow10, pow9 := uint64(10), uint64(9)
	for v := n / 10; v > 0; v /= 10 {
		d++
		pow10 *= 10
		pow9 *= 9
	}

	// n is the last d-digit number: move to the first (d+1)-digit one.
	if n == pow10-pow9-1 {
		return (n + 1) * 10
	}
	return n + 1
}
