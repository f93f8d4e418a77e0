package dom

// longestIncreasing returns a mask of the positions forming a longest
// strictly increasing subsequence of values, using only eligible positions.
// It runs in O(n log n) and is deterministic.
func longestIncreasing(values []int, eligible []bool) []bool {
	n := len(values)
	mask := make([]bool, n)
	if n == 0 {
		return mask
	}

	tails := make([]int, 0, n) // positions; values[tails[k]] is the smallest tail of a run of length k+1
	prev := make([]int, n)

	for p := 0; p < n; p++ {
		if !eligible[p] {
			continue
		}
		v := values[p]

		lo, hi := 0, len(tails)
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			if values[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}

		if lo > 0 {
			prev[p] = tails[lo-1]
		} else {
			prev[p] = -1
		}
		if lo == len(tails) {
			tails = append(tails, p)
		} else {
			tails[lo] = p
		}
	}

	if len(tails) == 0 {
		return mask
	}
	for p := tails[len(tails)-1]; p >= 0; p = prev[p] {
		mask[p] = true
	}
	return mask
}

// pinnedCompatible marks the positions that may share an increasing run
// with every pinned position: a position is compatible when its value lies
// strictly between the values of the nearest pinned positions on either
// side. Pinned positions are always compatible.
//
// Pinned values must already increase with position. Any longest run over
// compatible positions then contains every pinned position, since a pinned
// one could otherwise be added to it.
func pinnedCompatible(values []int, pinned []bool) []bool {
	n := len(values)
	out := make([]bool, n)

	lower := make([]int, n)
	bound := -1
	for p := 0; p < n; p++ {
		lower[p] = bound
		if pinned[p] {
			bound = values[p]
		}
	}

	bound = n
	for p := n - 1; p >= 0; p-- {
		if pinned[p] {
			out[p] = true
			bound = values[p]
			continue
		}
		out[p] = values[p] > lower[p] && values[p] < bound
	}
	return out
}
