package registry

// Threshold returns the minimum number of distinct relayer signatures that
// authorizes a relay with n registered relayers: n - floor((n-1)/3).
//
// Floor is mathematical, so Threshold(0) is 1 and an empty set authorizes nothing.
func Threshold(n int) int {
	return n - floorDiv(n-1, 3)
}

// FaultTolerance returns how many faulty relayers a set of n tolerates.
func FaultTolerance(n int) int {
	if n < 1 {
		return 0
	}
	return (n - 1) / 3
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
