package diskplan

// Intersect merges the sorted, disjoint "changed" intervals (from CBT, in
// bytes) against the sorted, disjoint "allocated" intervals (from the
// planner, in bytes) and returns the sorted, disjoint set of intervals
// that lie in both.
//
// This is the two-pointer merge from mergesort's combine step: each list
// is walked forward exactly once overall, so the whole call is O(len(changed)
// + len(allocated)) regardless of how the two lists interleave.
func Intersect(changed, allocated []Interval) []Interval {
	var result []Interval
	k := 0

	for _, c := range changed {
		if c.Length == 0 {
			continue
		}
		for k < len(allocated) {
			b := allocated[k]
			if c.End() <= b.Start {
				// This changed interval ends before the current allocated
				// block starts; no more overlap is possible for it.
				break
			}
			if b.Start < c.End() && b.End() > c.Start {
				start := max64(c.Start, b.Start)
				end := min64(c.End(), b.End())
				if end > start {
					result = append(result, Interval{Start: start, Length: end - start})
				}
			}
			if b.End() <= c.End() {
				k++
			}
			if c.End() <= b.End() {
				break
			}
		}
		if k >= len(allocated) {
			break
		}
	}
	return result
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
